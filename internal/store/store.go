// Package store performs the filesystem side of every cache operation for a
// single key: atomic writes, reads, touches and removals. Each mutation keeps
// the accountant in step with what is on disk.
//
// A Store is not safe for concurrent use. The cache calls it from its single
// worker goroutine only.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/lucasew/diskcache/internal/accounting"
	"github.com/lucasew/diskcache/internal/keymap"
)

// TempPrefix starts the name of every in-flight write.
const TempPrefix = ".put-"

// FileMode is the permission of entry files.
const FileMode = 0o644

// Supplier produces the data for a key on demand.
type Supplier func() ([]byte, error)

// Store reads and writes entry files under one directory.
type Store struct {
	fsys afero.Fs
	keys *keymap.Mapper
	acct *accounting.Accountant
	log  *slog.Logger
	now  func() time.Time
}

func New(fsys afero.Fs, keys *keymap.Mapper, acct *accounting.Accountant, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		fsys: fsys,
		keys: keys,
		acct: acct,
		log:  log,
		now:  time.Now,
	}
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.keys.Dir() }

// Fs returns the filesystem the store operates on.
func (s *Store) Fs() afero.Fs { return s.fsys }

// Path returns the file path for key.
func (s *Store) Path(key string) string { return s.keys.Path(key) }

// Write stores data under key, replacing any previous content atomically. It
// returns how much the tracked size grew (negative when it shrank). On failure
// the previous file and the tracked size are left untouched.
func (s *Store) Write(key string, data []byte) (int64, error) {
	path := s.keys.Path(key)

	var oldSize uint64
	existed := false
	if info, err := s.fsys.Stat(path); err == nil && info.Mode().IsRegular() {
		oldSize = uint64(info.Size())
		existed = true
	}

	if err := s.ensureDir(); err != nil {
		s.log.Error("Failed to create directory", "path", s.Dir(), "error", err)
		return 0, fmt.Errorf("%w: create %s: %w", ErrIO, s.Dir(), err)
	}

	if err := s.writeAtomic(path, data); err != nil {
		s.log.Error("Failed to write key", "key", key, "path", path, "error", err)
		return 0, fmt.Errorf("%w: write %q: %w", ErrIO, key, err)
	}

	info, err := s.fsys.Stat(path)
	if err != nil {
		// The new content is in place but its size is unknown. A rescan is
		// the only way back to a correct total.
		s.log.Error("Failed to read size of written file", "path", path, "error", err)
		before := s.acct.Size()
		after := s.acct.Recalculate(s.fsys, s.Dir())
		return int64(after) - int64(before), nil
	}
	newSize := uint64(info.Size())
	_ = s.acct.ApplyWrite(oldSize, existed, newSize)

	return int64(newSize) - int64(oldSize), nil
}

// Read returns the content stored under key.
func (s *Store) Read(key string) ([]byte, error) {
	path := s.keys.Path(key)
	data, err := afero.ReadFile(s.fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("File not found", "key", key, "path", path)
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		s.log.Error("Failed to read key", "key", key, "path", path, "error", err)
		return nil, fmt.Errorf("%w: read %q: %w", ErrIO, key, err)
	}
	return data, nil
}

// Touch refreshes the modification time of path.
func (s *Store) Touch(path string) error {
	now := s.now()
	if err := s.fsys.Chtimes(path, now, now); err != nil {
		s.log.Error("Failed to update access date", "path", path, "error", err)
		return err
	}
	return nil
}

// TouchOrWrite refreshes the entry for key if it exists. Only when that fails
// is supply called and its result written.
func (s *Store) TouchOrWrite(key string, supply Supplier) (int64, error) {
	path := s.keys.Path(key)
	if ok, _ := afero.Exists(s.fsys, path); ok && s.Touch(path) == nil {
		return 0, nil
	}
	data, err := supply()
	if err != nil {
		s.log.Error("Failed to get data for key", "key", key, "error", err)
		return 0, err
	}
	return s.Write(key, data)
}

// Remove deletes the entry for key. A missing entry is not an error.
func (s *Store) Remove(key string) {
	s.RemovePath(s.keys.Path(key))
}

// RemovePath deletes the file at path and subtracts its size. Failures are
// logged; the return value reports whether a file was actually removed.
func (s *Store) RemovePath(path string) (uint64, bool) {
	info, err := s.fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("File not found", "path", path)
		} else {
			s.log.Error("Failed to remove file", "path", path, "error", err)
		}
		return 0, false
	}
	if !info.Mode().IsRegular() {
		s.log.Error("Refusing to remove non-regular file", "path", path, "mode", info.Mode().String())
		return 0, false
	}
	if err := s.fsys.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("File not found", "path", path)
		} else {
			s.log.Error("Failed to remove file", "path", path, "error", err)
		}
		return 0, false
	}
	size := uint64(info.Size())
	_ = s.acct.ApplyRemoval(size)
	return size, true
}

// ClearAll deletes everything under the cache directory. Each deletion is
// attempted independently, then the size is recalculated from disk.
func (s *Store) ClearAll() {
	dir := s.Dir()
	names, err := accounting.ListNames(s.fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("Cache directory does not exist", "path", dir)
		} else {
			s.log.Error("Failed to list directory", "path", dir, "error", err)
		}
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := s.fsys.RemoveAll(path); err != nil {
			s.log.Error("Failed to remove path", "path", path, "error", err)
		}
	}
	s.acct.Recalculate(s.fsys, dir)
}

// Rescan drops temporary files left behind by an interrupted write and
// recalculates the size from disk.
func (s *Store) Rescan() uint64 {
	dir := s.Dir()
	names, err := accounting.ListNames(s.fsys, dir)
	if err == nil {
		for _, name := range names {
			if !strings.HasPrefix(name, TempPrefix) {
				continue
			}
			path := filepath.Join(dir, name)
			if err := s.fsys.Remove(path); err != nil {
				s.log.Warn("Failed to remove stale temporary file", "path", path, "error", err)
			} else {
				s.log.Info("Removed stale temporary file", "path", path)
			}
		}
	}
	return s.acct.Recalculate(s.fsys, dir)
}

func (s *Store) ensureDir() error {
	dir := s.Dir()
	ok, err := afero.DirExists(s.fsys, dir)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	s.log.Warn("Recreating cache directory", "path", dir, "reason", ErrDirectoryMissing)
	return s.fsys.MkdirAll(dir, 0o755)
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place, so readers see either the old or the new content.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := afero.TempFile(s.fsys, filepath.Dir(path), TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fsys.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Temp files are created 0600.
	if err := s.fsys.Chmod(tmpName, FileMode); err != nil {
		s.log.Warn("Failed to set file mode", "path", tmpName, "error", err)
	}

	if err := s.fsys.Rename(tmpName, path); err != nil {
		_ = s.fsys.Remove(tmpName)
		return fmt.Errorf("failed to rename to final path: %w", err)
	}
	return nil
}
