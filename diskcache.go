// Package diskcache is a disk-backed key/value cache of byte blobs with a
// capacity bound and a pluggable eviction strategy.
//
// Each Cache owns one directory and one worker goroutine. Every operation is
// queued on that worker and runs to completion, including any eviction pass
// it triggers, before the next one starts. Calls return immediately; results
// come back on channels or through a Notifier.
package diskcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/lucasew/diskcache/internal/accounting"
	"github.com/lucasew/diskcache/internal/errutil"
	"github.com/lucasew/diskcache/internal/keymap"
	"github.com/lucasew/diskcache/internal/queue"
	"github.com/lucasew/diskcache/internal/store"
)

// Unbounded is the capacity of a cache that never evicts for size.
const Unbounded = math.MaxUint64

// Supplier produces the data for a key on demand.
type Supplier = store.Supplier

// Config describes a cache. Only Dir is required.
type Config struct {
	// Dir is the cache directory. It is created when missing.
	Dir string

	// Fs defaults to the operating system filesystem.
	Fs afero.Fs

	// Capacity in bytes. Zero means Unbounded.
	Capacity uint64

	// Strategy defaults to OverCapacity.
	Strategy Strategy

	// KeyHash names the digest used for keys too long to escape. Defaults
	// to md5.
	KeyHash string

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// QueueSize is the number of operations that may be pending before
	// callers block. Defaults to 1024.
	QueueSize int

	// EnforceInterval, when positive, also runs the strategy periodically.
	EnforceInterval time.Duration

	// Observer receives operation outcomes. Optional.
	Observer Observer
}

// Result is the outcome of a read.
type Result struct {
	Data []byte
	Err  error
}

// Cache is a directory of entries managed by a single worker.
type Cache struct {
	dir      string
	fsys     afero.Fs
	keys     *keymap.Mapper
	acct     *accounting.Accountant
	store    *store.Store
	worker   *queue.Worker
	log      *slog.Logger
	observer Observer

	capacity atomic.Uint64

	// strategy is only read and written by the worker.
	strategy Strategy

	stop      chan struct{}
	ticker    sync.WaitGroup
	closeOnce sync.Once
}

// New creates a cache for cfg.Dir. The existing content of the directory is
// scanned and the capacity enforced in the background.
func New(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache directory is required")
	}
	keys, err := keymap.New(filepath.Clean(cfg.Dir), cfg.KeyHash)
	if err != nil {
		return nil, err
	}
	if cfg.Fs == nil {
		cfg.Fs = store.NewOsFs()
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = Unbounded
	}
	if cfg.Strategy == nil {
		cfg.Strategy = OverCapacity{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	log := cfg.Logger.With("cache", keys.Dir())

	acct := accounting.New(log)
	acct.OnDrift = cfg.Observer.ObserveDrift

	c := &Cache{
		dir:      keys.Dir(),
		fsys:     cfg.Fs,
		keys:     keys,
		acct:     acct,
		store:    store.New(cfg.Fs, keys, acct, log),
		worker:   queue.New(cfg.QueueSize, log),
		log:      log,
		observer: cfg.Observer,
		strategy: cfg.Strategy,
		stop:     make(chan struct{}),
	}
	c.capacity.Store(cfg.Capacity)

	c.submit(func() {
		if err := c.fsys.MkdirAll(c.dir, 0o755); err != nil {
			errutil.ReportError(c.log, err, "Failed to create cache directory", "path", c.dir)
		}
		size := c.store.Rescan()
		c.log.Info("Cache loaded", "size", size, "capacity", c.Capacity())
		c.enforce()
	})

	if cfg.EnforceInterval > 0 {
		c.ticker.Add(1)
		go c.runTicker(cfg.EnforceInterval)
	}
	return c, nil
}

func (c *Cache) runTicker(interval time.Duration) {
	defer c.ticker.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.submit(c.enforce)
		}
	}
}

// submit queues task and reports whether it was accepted.
func (c *Cache) submit(task func()) bool {
	err := c.worker.Submit(func() {
		task()
		c.observer.ObserveSize(c.acct.Size(), c.Capacity())
	})
	if err != nil {
		c.log.Debug("Operation dropped", "error", err)
		return false
	}
	return true
}

// enforce runs the current strategy. Worker only.
func (c *Cache) enforce() {
	defer errutil.Recover(c.log, "Eviction strategy panicked")
	c.strategy.Enforce(target{c}, c.fsys)
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Size returns the tracked number of bytes in the cache.
func (c *Cache) Size() uint64 { return c.acct.Size() }

// Capacity returns the capacity in bytes.
func (c *Cache) Capacity() uint64 { return c.capacity.Load() }

// PathForKey returns the file that holds key. It does not touch the disk.
func (c *Cache) PathForKey(key string) string { return c.keys.Path(key) }

// SetCapacity changes the capacity and runs the strategy once the change is
// applied.
func (c *Cache) SetCapacity(capacity uint64) {
	c.submit(func() {
		c.capacity.Store(capacity)
		c.log.Debug("Capacity changed", "capacity", capacity)
		c.enforce()
	})
}

// SetStrategy replaces the eviction strategy. It is used from the next
// enforcement pass on.
func (c *Cache) SetStrategy(s Strategy) {
	if s == nil {
		s = OverCapacity{}
	}
	c.submit(func() { c.strategy = s })
}

// Enforce queues an enforcement pass. The returned channel is closed once it
// has run.
func (c *Cache) Enforce() <-chan struct{} {
	done := make(chan struct{})
	if !c.submit(func() {
		defer close(done)
		c.enforce()
	}) {
		close(done)
	}
	return done
}

// Put stores a copy of data under key, so the caller may reuse the slice as
// soon as Put returns. The channel receives nil or the write error.
func (c *Cache) Put(key string, data []byte) <-chan error {
	data = bytes.Clone(data)
	return c.PutFunc(key, func() ([]byte, error) { return data, nil })
}

// PutFunc is Put with data produced on the worker by supply.
func (c *Cache) PutFunc(key string, supply Supplier) <-chan error {
	done := make(chan error, 1)
	ok := c.submit(func() {
		err := c.write(key, supply)
		c.observer.ObserveOp(OpPut, err)
		done <- err
	})
	if !ok {
		done <- ErrClosed
	}
	return done
}

func (c *Cache) write(key string, supply Supplier) error {
	data, err := supply()
	if err != nil {
		errutil.ReportError(c.log, err, "Failed to get data for key", "key", key)
		return err
	}
	delta, err := c.store.Write(key, data)
	if err != nil {
		return err
	}
	if delta > 0 {
		c.enforce()
	}
	return nil
}

// Get reads the entry for key. The channel receives exactly one Result; a
// missing entry yields ErrNotFound.
func (c *Cache) Get(key string) <-chan Result {
	done := make(chan Result, 1)
	c.Fetch(key, NotifierFunc(func(f func()) { f() }), func(r Result) { done <- r })
	return done
}

// Fetch reads the entry for key and hands fn to n once the result is known.
// n decides where fn runs; it is called on the worker and must not block.
func (c *Cache) Fetch(key string, n Notifier, fn func(Result)) {
	ok := c.submit(func() {
		data, err := c.store.Read(key)
		c.observer.ObserveOp(OpGet, err)
		res := Result{Data: data, Err: err}
		n.Notify(func() { fn(res) })
		if err == nil {
			// Best effort, failures are only logged.
			_ = c.store.Touch(c.keys.Path(key))
		}
	})
	if !ok {
		n.Notify(func() { fn(Result{Err: ErrClosed}) })
	}
}

// Touch refreshes the timestamp of key. Only if that fails is supply called
// and its data written.
func (c *Cache) Touch(key string, supply Supplier) <-chan error {
	done := make(chan error, 1)
	ok := c.submit(func() {
		delta, err := c.store.TouchOrWrite(key, supply)
		if err == nil && delta > 0 {
			c.enforce()
		}
		c.observer.ObserveOp(OpTouch, err)
		done <- err
	})
	if !ok {
		done <- ErrClosed
	}
	return done
}

// Remove deletes the entry for key. Removing a missing key is a no-op.
func (c *Cache) Remove(key string) {
	c.submit(func() {
		c.store.Remove(key)
		c.observer.ObserveOp(OpRemove, nil)
	})
}

// RemoveFiles deletes the given entry files. Paths outside the cache
// directory are refused.
func (c *Cache) RemoveFiles(paths []string) {
	paths = append([]string(nil), paths...)
	c.submit(func() {
		for _, path := range paths {
			if filepath.Dir(filepath.Clean(path)) != c.dir {
				c.log.Error("Refusing to remove file outside cache", "path", path)
				continue
			}
			c.store.RemovePath(path)
		}
	})
}

// ClearAll deletes every entry. The channel is closed when done.
func (c *Cache) ClearAll() <-chan struct{} {
	done := make(chan struct{})
	ok := c.submit(func() {
		defer close(done)
		c.store.ClearAll()
		c.observer.ObserveOp(OpClear, nil)
	})
	if !ok {
		close(done)
	}
	return done
}

// Wait blocks until every operation submitted before it has run.
func (c *Cache) Wait(ctx context.Context) error {
	return c.worker.Drain(ctx)
}

// Close runs the pending operations and stops the worker. Entries stay on
// disk. Operations submitted afterwards fail with ErrClosed.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.ticker.Wait()
		c.worker.Close()
	})
	return nil
}

// String implements fmt.Stringer.
func (c *Cache) String() string {
	return fmt.Sprintf("diskcache(%s)", c.dir)
}

// target is the view of the cache handed to strategies.
type target struct{ c *Cache }

func (t target) Path() string         { return t.c.dir }
func (t target) Size() uint64         { return t.c.acct.Size() }
func (t target) Capacity() uint64     { return t.c.Capacity() }
func (t target) Logger() *slog.Logger { return t.c.log }

func (t target) RemoveFile(path string) bool {
	size, ok := t.c.store.RemovePath(path)
	if ok {
		t.c.observer.ObserveEviction(size)
	}
	return ok
}
