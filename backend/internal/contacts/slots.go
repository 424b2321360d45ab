package contacts

import (
	"strings"

	"kinship/backend/internal/constants"
	apperrors "kinship/backend/pkg/errors"
)

// Slot is the content of one fact position. A slot whose text is blank is
// empty regardless of its type.
type Slot struct {
	Text string
	Type string
}

// Slots is the fixed-width fact list of a contact. Index 0 holds slot 1.
//
// Allocation takes the lowest empty slot. Deletion clears in place and
// never shifts later slots down, so a slot number stays a stable address
// and gaps between occupied slots are expected.
type Slots [constants.FactSlotCount]Slot

// ValidateSlot checks that n is a 1-based slot number within capacity
func ValidateSlot(n int) error {
	if n < 1 || n > constants.FactSlotCount {
		return apperrors.NewInvalidSlot(n, constants.FactSlotCount)
	}
	return nil
}

// FirstEmpty returns the lowest empty slot number, or false when full
func (s *Slots) FirstEmpty() (int, bool) {
	for i := range s {
		if isBlank(s[i].Text) {
			return i + 1, true
		}
	}
	return 0, false
}

// Allocate stores text in the first empty slot and returns its number
func (s *Slots) Allocate(text, factType string) (int, bool) {
	n, ok := s.FirstEmpty()
	if !ok {
		return 0, false
	}
	s.Set(n, text, factType)
	return n, true
}

// Set overwrites slot n, occupied or not. An empty factType keeps the
// slot's current type, falling back to the default for empty slots.
func (s *Slots) Set(n int, text, factType string) {
	cur := s[n-1]
	if factType == "" {
		factType = cur.Type
		if isBlank(cur.Text) || factType == "" {
			factType = constants.DefaultFactType
		}
	}
	s[n-1] = Slot{Text: text, Type: factType}
}

// Clear empties slot n. Clearing an empty slot is a no-op.
func (s *Slots) Clear(n int) {
	s[n-1] = Slot{}
}

// ClearAll empties every slot
func (s *Slots) ClearAll() {
	*s = Slots{}
}

// Get returns slot n as a Fact
func (s *Slots) Get(n int) Fact {
	slot := s[n-1]
	if isBlank(slot.Text) {
		return Fact{Slot: n}
	}
	return Fact{Slot: n, Text: slot.Text, Type: slot.Type}
}

// All returns every slot in order, empty ones with blank text
func (s *Slots) All() []Fact {
	out := make([]Fact, 0, len(s))
	for i := range s {
		out = append(out, s.Get(i+1))
	}
	return out
}

// Occupied returns the non-empty slots in slot order
func (s *Slots) Occupied() []Fact {
	var out []Fact
	for i := range s {
		if f := s.Get(i + 1); !f.Empty() {
			out = append(out, f)
		}
	}
	return out
}

// Count returns the number of occupied slots
func (s *Slots) Count() int {
	n := 0
	for i := range s {
		if !isBlank(s[i].Text) {
			n++
		}
	}
	return n
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// validateFactText rejects blank fact text: a blank slot is an empty slot,
// clearing goes through delete_fact.
func validateFactText(text string) error {
	if isBlank(text) {
		return apperrors.NewValidation("text", "fact text must not be empty")
	}
	return nil
}

func normalizeFactType(factType string) string {
	return strings.ToLower(strings.TrimSpace(factType))
}
