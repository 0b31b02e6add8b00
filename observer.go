package diskcache

// Op names a cache operation.
type Op string

const (
	OpPut    Op = "put"
	OpGet    Op = "get"
	OpTouch  Op = "touch"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
)

// Observer is told about the outcome of cache operations. Its methods are
// called on the cache worker.
type Observer interface {
	// ObserveOp reports a finished operation. err is ErrNotFound for a
	// read miss.
	ObserveOp(op Op, err error)
	// ObserveEviction reports one entry removed by the strategy.
	ObserveEviction(size uint64)
	// ObserveSize reports the tracked size after every operation.
	ObserveSize(size, capacity uint64)
	// ObserveDrift reports a clamped accounting underflow.
	ObserveDrift()
}

type nopObserver struct{}

func (nopObserver) ObserveOp(Op, error)        {}
func (nopObserver) ObserveEviction(uint64)     {}
func (nopObserver) ObserveSize(uint64, uint64) {}
func (nopObserver) ObserveDrift()              {}
