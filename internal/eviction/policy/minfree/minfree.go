package minfree

import (
	"fmt"
	"log/slog"
)

// FreeSpaceFunc reports the bytes available to unprivileged users on the
// filesystem holding path.
type FreeSpaceFunc func(path string) (uint64, error)

// Policy asks for eviction when the filesystem holding Path has less than
// MinFreeBytes available.
type Policy struct {
	Path         string
	MinFreeBytes uint64

	// FreeSpace defaults to Available.
	FreeSpace FreeSpaceFunc

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (m Policy) BytesToFree(currentSize uint64) (uint64, error) {
	freeSpace := m.FreeSpace
	if freeSpace == nil {
		freeSpace = Available
	}
	free, err := freeSpace(m.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to check disk space: %w", err)
	}

	log := m.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Debug("Disk space check", "path", m.Path, "free_bytes", free, "min_required", m.MinFreeBytes)

	if free >= m.MinFreeBytes {
		return 0, nil
	}
	// Asking for more than the cache holds is fine: the caller stops when
	// it runs out of entries.
	return m.MinFreeBytes - free, nil
}
