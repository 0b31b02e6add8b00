package store

import "errors"

var (
	// ErrNotFound is returned when no file exists for a key.
	ErrNotFound = errors.New("entry not found")

	// ErrIO wraps every filesystem failure on a primary operation.
	ErrIO = errors.New("cache io failure")

	// ErrDirectoryMissing is logged when the cache directory vanished and
	// had to be recreated before a write.
	ErrDirectoryMissing = errors.New("cache directory missing")

	// ErrTimeUnavailable is returned when the filesystem cannot report the
	// requested timestamp.
	ErrTimeUnavailable = errors.New("timestamp unavailable")
)
