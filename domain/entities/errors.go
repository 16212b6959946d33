package entities

import "errors"

// Sentinel errors surfaced through the HTTP layer.
var (
	// ErrInvalidRequest indicates malformed creation input.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound indicates an unknown or already purged bot identifier.
	ErrNotFound = errors.New("bot not found")
)
