// Package accounting keeps the running total of bytes held by a cache
// directory.
//
// The total is only written by the cache worker. Reads may come from any
// goroutine, so the counter is atomic.
package accounting

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tunabay/go-infounit"
)

// ErrDrift is returned when a removal is larger than the tracked total. The
// total is clamped to zero instead of wrapping around.
var ErrDrift = errors.New("accounting drift")

// Accountant tracks the size of a cache directory.
type Accountant struct {
	size atomic.Uint64
	log  *slog.Logger

	// OnDrift, when set, is called every time a removal had to be clamped.
	OnDrift func()
}

func New(log *slog.Logger) *Accountant {
	if log == nil {
		log = slog.Default()
	}
	return &Accountant{log: log}
}

// Size returns the tracked total in bytes.
func (a *Accountant) Size() uint64 { return a.size.Load() }

// Reset replaces the tracked total, usually with the result of a full rescan.
func (a *Accountant) Reset(total uint64) {
	old := a.size.Swap(total)
	if old != total {
		a.log.Debug("Cache size recalculated", "previous", fmt.Sprintf("%.1S", infounit.ByteCount(old)), "size", fmt.Sprintf("%.1S", infounit.ByteCount(total)))
	}
}

// ApplyWrite accounts for a key being written with newSize bytes. When the
// key already existed, oldSize is subtracted first.
func (a *Accountant) ApplyWrite(oldSize uint64, existed bool, newSize uint64) error {
	var err error
	if existed {
		err = a.ApplyRemoval(oldSize)
	}
	a.size.Add(newSize)
	return err
}

// ApplyRemoval subtracts size from the total. If size is larger than the
// total, the total becomes zero and ErrDrift is returned.
func (a *Accountant) ApplyRemoval(size uint64) error {
	for {
		cur := a.size.Load()
		if size <= cur {
			if a.size.CompareAndSwap(cur, cur-size) {
				return nil
			}
			continue
		}
		if a.size.CompareAndSwap(cur, 0) {
			a.log.Warn("Cache size is smaller than size to subtract",
				"size", cur,
				"subtract", size,
			)
			if a.OnDrift != nil {
				a.OnDrift()
			}
			return fmt.Errorf("%w: tracked %d bytes, removing %d", ErrDrift, cur, size)
		}
	}
}
