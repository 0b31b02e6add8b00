package eviction

import (
	"github.com/spf13/afero"

	"github.com/lucasew/diskcache/internal/eviction/policy/minfree"
)

// MinFreeSpace removes the least recently modified entries until the bytes
// freed cover the shortfall of available disk space below MinFreeBytes.
type MinFreeSpace struct {
	MinFreeBytes uint64

	// FreeSpace defaults to minfree.Available.
	FreeSpace minfree.FreeSpaceFunc
}

func (m MinFreeSpace) Enforce(t Target, fsys afero.Fs) {
	p := minfree.Policy{
		Path:         t.Path(),
		MinFreeBytes: m.MinFreeBytes,
		FreeSpace:    m.FreeSpace,
		Logger:       t.Logger(),
	}
	toFree, err := p.BytesToFree(t.Size())
	if err != nil {
		t.Logger().Error("Failed to check capacity policy", "path", t.Path(), "error", err)
		return
	}
	if toFree == 0 {
		return
	}

	start := t.Size()
	removed := evictOldest(t, fsys, func() bool {
		return start-min(start, t.Size()) >= toFree
	})
	t.Logger().Info("Evicted to reclaim disk space", "count", removed, "to_free", toFree, "min_free", m.MinFreeBytes)
}
