package student

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("student not found")

	// ErrStoreUnavailable matches every failure of the underlying store.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrMalformedInput matches validation and decoding failures.
	ErrMalformedInput = errors.New("malformed input")
)

// StoreError is a failed store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStoreUnavailable and the driver error.
func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// NewStoreError wraps err for op. A nil err stays nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// Malformed wraps err so it matches ErrMalformedInput.
func Malformed(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrMalformedInput, err)
}
