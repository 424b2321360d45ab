package contacts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinship/backend/internal/constants"
	apperrors "kinship/backend/pkg/errors"
)

func TestValidateSlot(t *testing.T) {
	assert.NoError(t, ValidateSlot(1))
	assert.NoError(t, ValidateSlot(constants.FactSlotCount))

	err := ValidateSlot(0)
	var invalid *apperrors.ErrInvalidSlot
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, invalid.Slot)
	assert.Equal(t, constants.FactSlotCount, invalid.Capacity)
}

func TestSlots_AllocateAndClear(t *testing.T) {
	var s Slots

	n, ok := s.Allocate("a", "")
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	n, _ = s.Allocate("b", "work")
	assert.Equal(t, 2, n)

	s.Clear(1)
	first, ok := s.FirstEmpty()
	assert.True(t, ok)
	assert.Equal(t, 1, first)
	assert.Equal(t, "b", s.Get(2).Text)
	assert.Equal(t, 1, s.Count())

	for i := 0; i < constants.FactSlotCount-1; i++ {
		_, ok = s.Allocate("x", "")
		assert.True(t, ok)
	}
	_, ok = s.Allocate("overflow", "")
	assert.False(t, ok)
	assert.Equal(t, constants.FactSlotCount, s.Count())
}

func TestSlots_SetKeepsTypeWhenOmitted(t *testing.T) {
	var s Slots
	s.Set(4, "Nurse", "work")
	s.Set(4, "Doctor", "")
	assert.Equal(t, Fact{Slot: 4, Text: "Doctor", Type: "work"}, s.Get(4))

	s.Set(6, "Likes tea", "")
	assert.Equal(t, constants.DefaultFactType, s.Get(6).Type)
}

func TestSlots_WhitespaceIsEmpty(t *testing.T) {
	var s Slots
	s[0] = Slot{Text: "   ", Type: "work"}

	assert.True(t, s.Get(1).Empty())
	assert.Empty(t, s.Get(1).Type)
	first, _ := s.FirstEmpty()
	assert.Equal(t, 1, first)
	assert.Empty(t, s.Occupied())
}

func TestContactJSON_ExposesEverySlot(t *testing.T) {
	c := Contact{ID: 7, Name: "Ellen"}
	c.Facts.Set(3, "Plays cello", "hobby")

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	facts, ok := raw["facts"].([]interface{})
	require.True(t, ok)
	assert.Len(t, facts, constants.FactSlotCount)

	var back Contact
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c.Facts, back.Facts)
	assert.Equal(t, "Ellen", back.Name)
}
