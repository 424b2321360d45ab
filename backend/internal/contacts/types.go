package contacts

import (
	"encoding/json"
	"time"
)

// Contact is a person-like record with a summary and a fixed set of
// individually addressable fact slots.
type Contact struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Summary   string    `json:"summary,omitempty"`
	Facts     Slots     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fact is one (slot, text, type) entry of a contact
type Fact struct {
	Slot int    `json:"slot"`
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// Empty reports whether the fact's slot holds nothing
func (f Fact) Empty() bool {
	return isBlank(f.Text)
}

// ContactFact ties a fact to the contact that owns it
type ContactFact struct {
	ContactID   int64  `json:"contact_id"`
	ContactName string `json:"contact_name"`
	Fact
}

// MarshalJSON renders every slot, empty ones included, so callers see
// stable slot addresses rather than a dense list.
func (c Contact) MarshalJSON() ([]byte, error) {
	type alias Contact
	return json.Marshal(struct {
		alias
		Facts []Fact `json:"facts"`
	}{
		alias: alias(c),
		Facts: c.Facts.All(),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (c *Contact) UnmarshalJSON(data []byte) error {
	type alias Contact
	var aux struct {
		alias
		Facts []Fact `json:"facts"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Contact(aux.alias)
	for _, f := range aux.Facts {
		if ValidateSlot(f.Slot) == nil && !f.Empty() {
			c.Facts.Set(f.Slot, f.Text, f.Type)
		}
	}
	return nil
}
