// Package queue runs tasks one at a time, in submission order, on a single
// goroutine.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lucasew/diskcache/internal/errutil"
)

// ErrClosed is returned when submitting to a closed worker.
var ErrClosed = errors.New("worker closed")

// DefaultSize is the queue length used when none is given.
const DefaultSize = 1024

// Worker executes submitted tasks serially. Submit only blocks while the
// queue is full.
type Worker struct {
	tasks chan func()
	done  chan struct{}
	log   *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// New starts a worker with room for size pending tasks.
func New(size int, log *slog.Logger) *Worker {
	if size <= 0 {
		size = DefaultSize
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Worker{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
		log:   log,
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.done)
	for task := range w.tasks {
		w.exec(task)
	}
}

// exec runs one task. A panicking task is logged and does not stop the
// worker.
func (w *Worker) exec(task func()) {
	defer errutil.Recover(w.log, "Task panicked")
	task()
}

// Submit enqueues task. Tasks must not submit to their own worker.
func (w *Worker) Submit(task func()) error {
	return w.SubmitContext(context.Background(), task)
}

// SubmitContext is Submit, giving up when ctx is done while the queue is full.
func (w *Worker) SubmitContext(ctx context.Context, task func()) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain waits until every task submitted before the call has run.
func (w *Worker) Drain(ctx context.Context) error {
	reached := make(chan struct{})
	if err := w.SubmitContext(ctx, func() { close(reached) }); err != nil {
		if !errors.Is(err, ErrClosed) {
			return err
		}
		// Closed workers have nothing left to run once done is closed.
		select {
		case <-w.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks, runs the ones already queued and waits for the
// worker goroutine to exit. It is safe to call more than once.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.tasks)
	}
	w.mu.Unlock()
	<-w.done
}

// Len reports the number of queued tasks.
func (w *Worker) Len() int { return len(w.tasks) }
