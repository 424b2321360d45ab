package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"contact not found", NewContactNotFound(7), ErrorTypeNotFound},
		{"name not found", NewContactNameNotFound("Ellen"), ErrorTypeNotFound},
		{"node not found", NewNodeNotFound("Deja"), ErrorTypeNotFound},
		{"ambiguous", NewAmbiguousMatch("alex", []string{"Alex A", "Alex B"}), ErrorTypeAmbiguousMatch},
		{"invalid slot", NewInvalidSlot(11, 10), ErrorTypeInvalidSlot},
		{"capacity", NewCapacityExceeded(1, 10), ErrorTypeCapacityExceeded},
		{"validation", NewValidation("name", "must not be empty"), ErrorTypeValidation},
		{"storage", NewStorage("add_fact", stderrors.New("disk full")), ErrorTypeStorage},
		{"context", NewContextCancelled("reconcile", stderrors.New("canceled")), ErrorTypeContext},
		{"config", NewConfigMissingRequired("NEO4J_URI"), ErrorTypeConfig},
		{"wrapped", fmt.Errorf("outer: %w", NewInvalidSlot(0, 10)), ErrorTypeInvalidSlot},
		{"untyped", stderrors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NewContactNotFound(1)))
	assert.False(t, IsNotFound(NewInvalidSlot(0, 10)))
	assert.False(t, IsErrorType(nil, ErrorTypeNotFound))

	assert.True(t, IsRetryable(NewStorage("get", stderrors.New("busy"))))
	assert.False(t, IsRetryable(NewCapacityExceeded(1, 10)), "domain errors are final")
}

func TestUnwrapAndAs(t *testing.T) {
	cause := stderrors.New("database is locked")
	err := fmt.Errorf("add_fact: %w", NewStorage("add_fact", cause))

	assert.True(t, stderrors.Is(err, cause))

	var storage *ErrStorage
	if assert.True(t, stderrors.As(err, &storage)) {
		assert.Equal(t, "add_fact", storage.Operation)
	}

	var ambiguous *ErrAmbiguousMatch
	assert.True(t, stderrors.As(NewAmbiguousMatch("alex", []string{"a", "b"}), &ambiguous))
	assert.Equal(t, []string{"a", "b"}, ambiguous.Candidates)
}

func TestMessages(t *testing.T) {
	assert.Contains(t, NewInvalidSlot(11, 10).Error(), "slot 11 outside 1..10")
	assert.Contains(t, NewCapacityExceeded(3, 10).Error(), "all 10 fact slots of contact 3")
	assert.Contains(t, NewStorage("get", stderrors.New("boom")).Error(), "boom")
}
