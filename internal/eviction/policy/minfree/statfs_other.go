//go:build !linux && !darwin && !freebsd

package minfree

import "errors"

// Available is not implemented on this platform.
func Available(string) (uint64, error) {
	return 0, errors.New("free space check not supported on this platform")
}
