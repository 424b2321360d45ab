// Package contacts is the bounded-schema contact table: contact records
// with a summary and ten fixed fact slots.
package contacts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"kinship/backend/internal/identity"
	apperrors "kinship/backend/pkg/errors"
)

// Store is implemented by every contact backend.
//
// Operations on one contact are serialized against each other; operations
// on different contacts may run concurrently. AddOrGet is atomic end to end,
// so concurrent identical requests never create duplicates.
type Store interface {
	// AddOrGet returns the contact whose normalized name equals name's,
	// creating it with empty slots when none does. A non-nil summary
	// replaces the stored one. created reports whether a record was made.
	AddOrGet(ctx context.Context, name string, summary *string) (contact *Contact, created bool, err error)
	Get(ctx context.Context, id int64) (*Contact, error)
	// FindByName returns contacts whose normalized name contains the
	// normalized query, ordered by id. No match is an empty result.
	FindByName(ctx context.Context, query string) ([]Contact, error)
	List(ctx context.Context) ([]Contact, error)
	UpdateSummary(ctx context.Context, id int64, summary string) error
	Delete(ctx context.Context, id int64) error

	AddFact(ctx context.Context, id int64, text, factType string) (slot int, err error)
	UpdateFact(ctx context.Context, id int64, slot int, text, factType string) error
	DeleteFact(ctx context.Context, id int64, slot int) error
	DeleteAllFacts(ctx context.Context, id int64) error
	UpdateFactType(ctx context.Context, id int64, slot int, factType string) error
}

// Query is the get_contact contract: exactly one of id or name must be
// supplied. An id lookup yields one contact or NotFound; a name lookup is
// a substring search that may yield none.
func Query(ctx context.Context, store Store, id *int64, name string) ([]Contact, error) {
	hasName := identity.Normalize(name) != ""
	switch {
	case id != nil && hasName:
		return nil, apperrors.NewValidation("id/name", "supply either id or name, not both")
	case id != nil:
		c, err := store.Get(ctx, *id)
		if err != nil {
			return nil, err
		}
		return []Contact{*c}, nil
	case hasName:
		return store.FindByName(ctx, name)
	default:
		return nil, apperrors.NewValidation("id/name", "one of id or name is required")
	}
}

// Resolve returns the single contact a name refers to. An exact normalized
// match wins; otherwise the substring matches must number exactly one.
// Several candidates are reported as AmbiguousMatch, never narrowed.
func Resolve(ctx context.Context, store Store, name string) (*Contact, error) {
	key := identity.Normalize(name)
	if key == "" {
		return nil, apperrors.NewValidation("name", "must not be empty")
	}

	matches, err := store.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var exact []Contact
	for _, c := range matches {
		if identity.Normalize(c.Name) == key {
			exact = append(exact, c)
		}
	}
	if len(exact) > 0 {
		matches = exact
	}

	switch len(matches) {
	case 0:
		return nil, apperrors.NewContactNameNotFound(name)
	case 1:
		return &matches[0], nil
	default:
		candidates := make([]string, 0, len(matches))
		for _, c := range matches {
			candidates = append(candidates, fmt.Sprintf("%s (id %d)", c.Name, c.ID))
		}
		return nil, apperrors.NewAmbiguousMatch(name, candidates)
	}
}

// FactsByType lists occupied facts filtered by contact and/or type, ordered
// by contact id then slot. Both filters are optional.
func FactsByType(ctx context.Context, store Store, id *int64, factType string) ([]ContactFact, error) {
	var pool []Contact
	if id != nil {
		c, err := store.Get(ctx, *id)
		if err != nil {
			return nil, err
		}
		pool = []Contact{*c}
	} else {
		all, err := store.List(ctx)
		if err != nil {
			return nil, err
		}
		pool = all
	}

	want := normalizeFactType(factType)
	var out []ContactFact
	for i := range pool {
		for _, f := range pool[i].Facts.Occupied() {
			if want != "" && normalizeFactType(f.Type) != want {
				continue
			}
			out = append(out, ContactFact{ContactID: pool[i].ID, ContactName: pool[i].Name, Fact: f})
		}
	}
	return out, nil
}

// SearchFacts returns contacts whose fact text or summary contains query,
// case-insensitively.
func SearchFacts(ctx context.Context, store Store, query string) ([]Contact, error) {
	q := identity.Normalize(query)
	if q == "" {
		return nil, apperrors.NewValidation("query", "must not be empty")
	}

	all, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []Contact
	for _, c := range all {
		if identity.Contains(c.Summary, q) {
			out = append(out, c)
			continue
		}
		for _, f := range c.Facts.Occupied() {
			if identity.Contains(f.Text, q) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func validateName(name string) (string, error) {
	key := identity.Normalize(name)
	if key == "" {
		return "", apperrors.NewValidation("name", "must not be empty")
	}
	return key, nil
}

func sortByID(cs []Contact) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
