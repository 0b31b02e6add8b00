//go:build linux

package store

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

func birthTime(path string) (time.Time, error) {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx); err != nil {
		return time.Time{}, &fs.PathError{Op: "statx", Path: path, Err: err}
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return time.Time{}, ErrTimeUnavailable
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)), nil
}
