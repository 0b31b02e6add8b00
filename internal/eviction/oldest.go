package eviction

import (
	"fmt"

	"github.com/petar/GoLLRB/llrb"
	"github.com/spf13/afero"
	"github.com/tunabay/go-infounit"

	"github.com/lucasew/diskcache/internal/eviction/policy"
)

// candidate is an entry ordered by modification time. Entries sharing a
// timestamp are ordered by name so the tree never drops one.
type candidate Entry

func (c *candidate) Less(than llrb.Item) bool {
	x := than.(*candidate) //nolint:forcetypeassert
	if !c.ModTime.Equal(x.ModTime) {
		return c.ModTime.Before(x.ModTime)
	}
	return c.Name < x.Name
}

// evictOldest removes entries oldest first until done reports true or the
// directory has been exhausted. Every entry is visited at most once.
func evictOldest(t Target, fsys afero.Fs, done func() bool) int {
	if done() {
		return 0
	}
	log := t.Logger()
	entries, err := Entries(fsys, t.Path(), log)
	if err != nil {
		log.Error("Failed to list directory", "path", t.Path(), "error", err)
		return 0
	}

	tree := llrb.New()
	for i := range entries {
		tree.ReplaceOrInsert((*candidate)(&entries[i]))
	}

	removed := 0
	for item := tree.DeleteMin(); item != nil; item = tree.DeleteMin() {
		c := item.(*candidate) //nolint:forcetypeassert
		if t.RemoveFile(c.Path) {
			removed++
		}
		if done() {
			break
		}
	}
	return removed
}

// OverCapacity removes the least recently modified entries while the cache is
// larger than its capacity.
type OverCapacity struct{}

func (OverCapacity) Enforce(t Target, fsys afero.Fs) {
	excess, _ := policy.MaxSize{Limit: t.Capacity()}.BytesToFree(t.Size())
	if excess == 0 {
		return
	}
	before := t.Size()
	removed := evictOldest(t, fsys, func() bool { return t.Size() <= t.Capacity() })
	t.Logger().Info("Evicted over capacity",
		"count", removed,
		"to_free", fmt.Sprintf("%.1S", infounit.ByteCount(excess)),
		"freed", fmt.Sprintf("%.1S", infounit.ByteCount(before-min(before, t.Size()))),
		"size", t.Size(),
		"capacity", t.Capacity(),
	)
}
