package domain

import "errors"

var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCoordinate indicates a missing or out-of-range coordinate.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrEmptyQuery indicates a blank search query.
	ErrEmptyQuery = errors.New("search query must not be empty")

	// ErrCacheMiss indicates that a cache key does not exist.
	ErrCacheMiss = errors.New("cache miss")

	// ErrRegistryDesync indicates the marker registry no longer matches
	// the snapshot it was built from.
	ErrRegistryDesync = errors.New("marker registry out of sync")

	// ErrSuperseded indicates a search was replaced by a newer one.
	ErrSuperseded = errors.New("search superseded")
)
