package store

import (
	"time"

	"github.com/spf13/afero"
)

// BirthTimer is implemented by filesystems that can report when a file was
// created.
type BirthTimer interface {
	BirthTime(name string) (time.Time, error)
}

// OsFs is the operating system filesystem with creation time support.
type OsFs struct {
	afero.OsFs
}

// NewOsFs returns the filesystem used by default for cache directories.
func NewOsFs() afero.Fs { return &OsFs{} }

// BirthTime reports the creation time of name, when the platform and the
// underlying filesystem record one.
func (*OsFs) BirthTime(name string) (time.Time, error) { return birthTime(name) }

// ModTime returns the modification time of path.
func ModTime(fsys afero.Fs, path string) (time.Time, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// BirthTime returns the creation time of path. Filesystems without the
// capability yield ErrTimeUnavailable.
func BirthTime(fsys afero.Fs, path string) (time.Time, error) {
	switch f := fsys.(type) {
	case BirthTimer:
		return f.BirthTime(path)
	case *afero.OsFs:
		return birthTime(path)
	}
	return time.Time{}, ErrTimeUnavailable
}
