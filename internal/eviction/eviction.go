// Package eviction holds the policies that decide which cache entries to
// delete. A strategy is a stateless value: it looks at the cache through a
// Target and the filesystem, and removes files through Target.RemoveFile.
//
// Strategies run on the cache worker, so they never race with other
// operations on the same cache.
package eviction

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/lucasew/diskcache/internal/accounting"
	"github.com/lucasew/diskcache/internal/keymap"
	"github.com/lucasew/diskcache/internal/store"
)

// Target is the view of a cache handed to a Strategy.
type Target interface {
	// Path is the cache directory.
	Path() string
	// Size is the tracked number of bytes in the cache.
	Size() uint64
	// Capacity is the configured upper bound in bytes.
	Capacity() uint64
	// RemoveFile deletes one entry file and updates Size. It reports
	// whether a file was removed.
	RemoveFile(path string) bool
	// Logger is the cache's logger.
	Logger() *slog.Logger
}

// Strategy enforces a policy on a cache.
type Strategy interface {
	Enforce(t Target, fsys afero.Fs)
}

// Func adapts a function to Strategy.
type Func func(t Target, fsys afero.Fs)

func (f Func) Enforce(t Target, fsys afero.Fs) { f(t, fsys) }

// Semantic selects which timestamp of an entry a policy looks at.
type Semantic int

const (
	CreationTime Semantic = iota
	ModificationTime
)

func (s Semantic) String() string {
	switch s {
	case CreationTime:
		return "creation"
	case ModificationTime:
		return "modification"
	}
	return fmt.Sprintf("Semantic(%d)", int(s))
}

// ParseSemantic accepts "creation" or "modification".
func ParseSemantic(s string) (Semantic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "creation", "created", "birth":
		return CreationTime, nil
	case "modification", "modified", "mtime":
		return ModificationTime, nil
	}
	return 0, fmt.Errorf("unknown timestamp semantic %q", s)
}

// Timestamp reads the timestamp selected by semantic.
func (s Semantic) Timestamp(fsys afero.Fs, path string) (time.Time, error) {
	if s == CreationTime {
		return store.BirthTime(fsys, path)
	}
	return store.ModTime(fsys, path)
}

// Entry describes one file in the cache directory.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Entries lists the entry files in dir. Files that cannot be stat'ed are
// logged and left out.
func Entries(fsys afero.Fs, dir string, log *slog.Logger) ([]Entry, error) {
	names, err := accounting.ListNames(fsys, dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if !keymap.IsEntryName(name) {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := fsys.Stat(path)
		if err != nil {
			log.Error("Failed to read file attributes", "path", path, "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, Entry{
			Name:    name,
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}
