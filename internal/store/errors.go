package store

import "errors"

// Sentinel errors returned by store implementations. Services translate
// them into domain errors.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrStateChanged means a conditional write found the row in a different
	// state than the caller expected.
	ErrStateChanged = errors.New("resource state changed")
	// ErrFull means a participant insert would exceed the event capacity.
	ErrFull = errors.New("capacity reached")
)
