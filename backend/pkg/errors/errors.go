package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound is returned for unknown contact ids or node ids
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeInvalidSlot is returned for fact slots outside 1..10
	ErrorTypeInvalidSlot ErrorType = "invalid_slot"
	// ErrorTypeCapacityExceeded is returned when no fact slot is free
	ErrorTypeCapacityExceeded ErrorType = "capacity_exceeded"
	// ErrorTypeAmbiguousMatch is returned when a single match was required but several matched
	ErrorTypeAmbiguousMatch ErrorType = "ambiguous_match"
	// ErrorTypeValidation represents malformed input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeStorage represents backend (sqlite, neo4j) failures
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind reports the error category
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Lookup Errors

// ErrContactNotFound is returned when a contact id is unknown
type ErrContactNotFound struct {
	*BaseError
	ContactID int64
}

func NewContactNotFound(contactID int64) *ErrContactNotFound {
	return &ErrContactNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("contact not found: %d", contactID), nil),
		ContactID: contactID,
	}
}

// ErrContactNameNotFound is returned when a required single name match found nothing
type ErrContactNameNotFound struct {
	*BaseError
	Name string
}

func NewContactNameNotFound(name string) *ErrContactNameNotFound {
	return &ErrContactNameNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("no contact matches name: %q", name), nil),
		Name:      name,
	}
}

// ErrNodeNotFound is returned when a graph node id is unknown
type ErrNodeNotFound struct {
	*BaseError
	NodeID string
}

func NewNodeNotFound(nodeID string) *ErrNodeNotFound {
	return &ErrNodeNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("node not found: %s", nodeID), nil),
		NodeID:    nodeID,
	}
}

// ErrAmbiguousMatch is returned when several records match where one was required.
// The candidates are surfaced, never silently narrowed to one.
type ErrAmbiguousMatch struct {
	*BaseError
	Query      string
	Candidates []string
}

func NewAmbiguousMatch(query string, candidates []string) *ErrAmbiguousMatch {
	return &ErrAmbiguousMatch{
		BaseError: NewBaseError(ErrorTypeAmbiguousMatch,
			fmt.Sprintf("%q matches %d records: %s", query, len(candidates), strings.Join(candidates, ", ")), nil),
		Query:      query,
		Candidates: candidates,
	}
}

// Fact Slot Errors

// ErrInvalidSlot is returned for a slot number outside 1..capacity
type ErrInvalidSlot struct {
	*BaseError
	Slot     int
	Capacity int
}

func NewInvalidSlot(slot, capacity int) *ErrInvalidSlot {
	return &ErrInvalidSlot{
		BaseError: NewBaseError(ErrorTypeInvalidSlot, fmt.Sprintf("slot %d outside 1..%d", slot, capacity), nil),
		Slot:      slot,
		Capacity:  capacity,
	}
}

// ErrCapacityExceeded is returned when every fact slot of a contact is occupied
type ErrCapacityExceeded struct {
	*BaseError
	ContactID int64
	Capacity  int
}

func NewCapacityExceeded(contactID int64, capacity int) *ErrCapacityExceeded {
	return &ErrCapacityExceeded{
		BaseError: NewBaseError(ErrorTypeCapacityExceeded,
			fmt.Sprintf("all %d fact slots of contact %d are occupied; update or delete an existing fact", capacity, contactID), nil),
		ContactID: contactID,
		Capacity:  capacity,
	}
}

// Input Errors

// ErrValidation is returned for malformed operation input
type ErrValidation struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidation(field, reason string) *ErrValidation {
	return &ErrValidation{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Storage Errors

// ErrStorage wraps a backend failure
type ErrStorage struct {
	*BaseError
	Operation string
}

func NewStorage(operation string, err error) *ErrStorage {
	return &ErrStorage{
		BaseError: NewBaseError(ErrorTypeStorage, fmt.Sprintf("storage failure during %s", operation), err),
		Operation: operation,
	}
}

// Context Errors

// ErrContextCancelled is returned when the caller's context ends mid-operation
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type kinded interface {
	Kind() ErrorType
}

// TypeOf returns the category of the first typed error in err's chain, or
// "" when err carries none.
func TypeOf(err error) ErrorType {
	var k kinded
	if stderrors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// IsNotFound reports whether err is a not_found error
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsRetryable reports whether the caller's transport may reasonably re-issue
// the operation. Only storage failures qualify; domain errors are final.
func IsRetryable(err error) bool {
	return IsErrorType(err, ErrorTypeStorage)
}
