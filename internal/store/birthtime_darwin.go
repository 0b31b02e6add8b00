//go:build darwin

package store

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

func birthTime(path string) (time.Time, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return time.Time{}, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}
	return time.Unix(st.Birthtimespec.Unix()), nil
}
