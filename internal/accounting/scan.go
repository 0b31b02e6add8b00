package accounting

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tunabay/go-infounit"

	"github.com/lucasew/diskcache/internal/keymap"
)

// Recalculate lists dir, sums the size of every entry file and makes that the
// tracked total. Entries that cannot be stat'ed are logged and skipped. A
// missing directory counts as empty.
func (a *Accountant) Recalculate(fsys afero.Fs, dir string) uint64 {
	names, err := ListNames(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.log.Debug("Cache directory does not exist yet", "path", dir)
		} else {
			a.log.Error("Failed to list directory", "path", dir, "error", err)
		}
		a.Reset(0)
		return 0
	}

	var total uint64
	var count int
	for _, name := range names {
		if !keymap.IsEntryName(name) {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := fsys.Stat(path)
		if err != nil {
			a.log.Error("Failed to read file size", "path", path, "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		total += uint64(info.Size())
		count++
	}

	a.Reset(total)
	a.log.Debug("Cache state loaded", "path", dir, "count", count, "size", fmt.Sprintf("%.1S", infounit.ByteCount(total)))
	return total
}

// ListNames returns the names directly under dir. Unlike afero.ReadDir it does
// not stat each child, so one unreadable entry cannot fail the whole listing.
func ListNames(fsys afero.Fs, dir string) ([]string, error) {
	f, err := fsys.Open(dir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return f.Readdirnames(-1)
}
