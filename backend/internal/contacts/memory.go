package contacts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"kinship/backend/internal/constants"
	"kinship/backend/internal/identity"
	"kinship/backend/internal/keylock"
	apperrors "kinship/backend/pkg/errors"
	"kinship/backend/pkg/logger"
)

type memoryEntry struct {
	mu      sync.Mutex
	key     string
	contact Contact
	deleted bool
}

// MemoryStore keeps contacts in process memory.
//
// The map lock only guards membership; each contact carries its own mutex
// so writes to different contacts never wait on each other. add_or_get
// additionally holds a lock on the normalized name for its whole
// check-then-create sequence.
type MemoryStore struct {
	mu       sync.RWMutex
	contacts map[int64]*memoryEntry
	byKey    map[string][]int64
	nextID   int64

	names *keylock.Map
	now   func() time.Time
	log   *zap.Logger
}

// NewMemoryStore creates an empty in-memory contact store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contacts: make(map[int64]*memoryEntry),
		byKey:    make(map[string][]int64),
		names:    keylock.New(),
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Named("contacts.memory"),
	}
}

func (s *MemoryStore) AddOrGet(ctx context.Context, name string, summary *string) (*Contact, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, apperrors.NewContextCancelled("add_or_get", err)
	}
	key, err := validateName(name)
	if err != nil {
		return nil, false, err
	}

	unlock := s.names.Lock(key)
	defer unlock()

	for {
		s.mu.RLock()
		var e *memoryEntry
		if ids := s.byKey[key]; len(ids) > 0 {
			e = s.contacts[ids[0]]
		}
		s.mu.RUnlock()

		if e == nil {
			break
		}

		e.mu.Lock()
		if e.deleted {
			// lost a race with Delete; the index no longer holds it
			e.mu.Unlock()
			continue
		}
		if summary != nil {
			e.contact.Summary = *summary
			e.contact.UpdatedAt = s.now()
		}
		c := e.contact
		e.mu.Unlock()
		return &c, false, nil
	}

	now := s.now()
	c := Contact{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if summary != nil {
		c.Summary = *summary
	}

	s.mu.Lock()
	s.nextID++
	c.ID = s.nextID
	s.contacts[c.ID] = &memoryEntry{key: key, contact: c}
	s.byKey[key] = append(s.byKey[key], c.ID)
	s.mu.Unlock()

	s.log.Info("Contact created", zap.Int64("contact_id", c.ID), zap.String("name", c.Name))
	return &c, true, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*Contact, error) {
	var out Contact
	err := s.read(ctx, "get_contact", id, func(c *Contact) {
		out = *c
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) FindByName(ctx context.Context, query string) ([]Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("find_by_name", err)
	}
	if _, err := validateName(query); err != nil {
		return nil, err
	}
	return s.snapshot(func(c *Contact) bool {
		return identity.Contains(c.Name, query)
	}), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewContextCancelled("list_contacts", err)
	}
	return s.snapshot(func(*Contact) bool { return true }), nil
}

func (s *MemoryStore) UpdateSummary(ctx context.Context, id int64, summary string) error {
	return s.write(ctx, "update_summary", id, func(c *Contact) error {
		c.Summary = summary
		return nil
	})
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewContextCancelled("delete_contact", err)
	}

	s.mu.Lock()
	e, ok := s.contacts[id]
	if !ok {
		s.mu.Unlock()
		return apperrors.NewContactNotFound(id)
	}
	delete(s.contacts, id)
	ids := s.byKey[e.key]
	for i, v := range ids {
		if v == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.byKey, e.key)
	} else {
		s.byKey[e.key] = ids
	}
	s.mu.Unlock()

	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()

	s.log.Info("Contact deleted", zap.Int64("contact_id", id))
	return nil
}

func (s *MemoryStore) AddFact(ctx context.Context, id int64, text, factType string) (int, error) {
	if err := validateFactText(text); err != nil {
		return 0, err
	}
	var slot int
	err := s.write(ctx, "add_fact", id, func(c *Contact) error {
		n, ok := c.Facts.Allocate(text, normalizeFactType(factType))
		if !ok {
			return apperrors.NewCapacityExceeded(id, constants.FactSlotCount)
		}
		slot = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Debug("Fact added", zap.Int64("contact_id", id), zap.Int("slot", slot))
	return slot, nil
}

func (s *MemoryStore) UpdateFact(ctx context.Context, id int64, slot int, text, factType string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	if err := validateFactText(text); err != nil {
		return err
	}
	return s.write(ctx, "update_fact", id, func(c *Contact) error {
		c.Facts.Set(slot, text, normalizeFactType(factType))
		return nil
	})
}

func (s *MemoryStore) DeleteFact(ctx context.Context, id int64, slot int) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	return s.write(ctx, "delete_fact", id, func(c *Contact) error {
		c.Facts.Clear(slot)
		return nil
	})
}

func (s *MemoryStore) DeleteAllFacts(ctx context.Context, id int64) error {
	return s.write(ctx, "delete_all_facts", id, func(c *Contact) error {
		c.Facts.ClearAll()
		return nil
	})
}

func (s *MemoryStore) UpdateFactType(ctx context.Context, id int64, slot int, factType string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	ft := normalizeFactType(factType)
	if ft == "" {
		return apperrors.NewValidation("type", "must not be empty")
	}
	return s.write(ctx, "update_fact_type", id, func(c *Contact) error {
		f := c.Facts.Get(slot)
		if f.Empty() {
			return apperrors.NewValidation("slot", "slot is empty")
		}
		c.Facts.Set(slot, f.Text, ft)
		return nil
	})
}

func (s *MemoryStore) entry(id int64) *memoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contacts[id]
}

func (s *MemoryStore) read(ctx context.Context, op string, id int64, fn func(*Contact)) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewContextCancelled(op, err)
	}
	e := s.entry(id)
	if e == nil {
		return apperrors.NewContactNotFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return apperrors.NewContactNotFound(id)
	}
	fn(&e.contact)
	return nil
}

// write applies fn to a working copy and commits it only when fn succeeds
func (s *MemoryStore) write(ctx context.Context, op string, id int64, fn func(*Contact) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewContextCancelled(op, err)
	}
	e := s.entry(id)
	if e == nil {
		return apperrors.NewContactNotFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return apperrors.NewContactNotFound(id)
	}
	c := e.contact
	if err := fn(&c); err != nil {
		return err
	}
	c.UpdatedAt = s.now()
	e.contact = c
	return nil
}

func (s *MemoryStore) snapshot(keep func(*Contact) bool) []Contact {
	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.contacts))
	for _, e := range s.contacts {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Contact, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && keep(&e.contact) {
			out = append(out, e.contact)
		}
		e.mu.Unlock()
	}
	sortByID(out)
	return out
}
