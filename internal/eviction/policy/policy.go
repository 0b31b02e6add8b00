// Package policy measures how far a cache is from a size target. Policies
// only compute byte counts; the eviction strategies choose the victims.
package policy

// Policy reports how many bytes have to go before a cache is healthy again.
// Zero means nothing to do.
type Policy interface {
	BytesToFree(currentSize uint64) (uint64, error)
}

// MaxSize asks for the bytes held above Limit.
type MaxSize struct {
	Limit uint64
}

func (m MaxSize) BytesToFree(currentSize uint64) (uint64, error) {
	return currentSize - min(currentSize, m.Limit), nil
}
