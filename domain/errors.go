package domain

import "errors"

var (
	// ErrNotFound is returned by stores when a key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupported is returned by collaborators that have no backing implementation.
	ErrUnsupported = errors.New("unsupported operation")
)
