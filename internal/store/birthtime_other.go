//go:build !linux && !darwin

package store

import "time"

func birthTime(string) (time.Time, error) {
	return time.Time{}, ErrTimeUnavailable
}
