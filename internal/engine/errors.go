package engine

import "errors"

var (
	// ErrInvalidInput means the identifier or URL was malformed and no
	// fetch was attempted.
	ErrInvalidInput = errors.New("tok: invalid input")

	// ErrNotFound means every profile strategy was exhausted without a
	// usable result.
	ErrNotFound = errors.New("tok: profile not found")

	// ErrVideoUnavailable means every video strategy was exhausted
	// without a playable media URL.
	ErrVideoUnavailable = errors.New("tok: video unavailable")
)
