package diskcache

import (
	"github.com/lucasew/diskcache/internal/accounting"
	"github.com/lucasew/diskcache/internal/queue"
	"github.com/lucasew/diskcache/internal/store"
)

var (
	// ErrNotFound is returned by Get when no entry exists for the key.
	ErrNotFound = store.ErrNotFound

	// ErrIO wraps filesystem failures on Put and Get. The cause is wrapped
	// too, so errors.Is works on both.
	ErrIO = store.ErrIO

	// ErrAccountingDrift is reported when the tracked size went below what
	// was removed from disk. The size is clamped to zero.
	ErrAccountingDrift = accounting.ErrDrift

	// ErrDirectoryMissing is logged when the cache directory had to be
	// recreated.
	ErrDirectoryMissing = store.ErrDirectoryMissing

	// ErrTimeUnavailable is returned when a timestamp cannot be read.
	ErrTimeUnavailable = store.ErrTimeUnavailable

	// ErrClosed is returned for operations submitted after Close.
	ErrClosed = queue.ErrClosed
)
