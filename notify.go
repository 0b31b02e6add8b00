package diskcache

// Notifier runs callbacks somewhere chosen by the caller, such as an event
// loop. Notify is called from the cache worker and must not block on it.
type Notifier interface {
	Notify(f func())
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(f func())

func (n NotifierFunc) Notify(f func()) { n(f) }

// Go runs every callback on its own goroutine.
var Go Notifier = NotifierFunc(func(f func()) { go f() })

// ChanNotifier queues callbacks on a channel drained by the caller.
type ChanNotifier chan func()

func (c ChanNotifier) Notify(f func()) { c <- f }
