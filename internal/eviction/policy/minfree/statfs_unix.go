//go:build linux || darwin || freebsd

package minfree

import "golang.org/x/sys/unix"

// Available returns the free space for unprivileged users at path.
func Available(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	// Available blocks * block size
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
