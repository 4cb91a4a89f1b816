// Package student defines the student record domain: the Student entity,
// partial updates with explicit field presence, query result shapes and the
// Repository contract that both the durable store and the caching decorator
// implement.
//
// # Partial updates
//
// Patch carries one Optional per mutable field. A field is applied only when
// it is present, independent of its value:
//
//	patch := student.Patch{Grade: student.Some(0)}
//	// grade is set to 0, every other column is left alone
//
// # Errors
//
// ErrNotFound is a normal outcome of lookups and mutations by id.
// StoreError wraps driver failures and matches ErrStoreUnavailable with
// errors.Is. Validation failures match ErrMalformedInput.
package student
