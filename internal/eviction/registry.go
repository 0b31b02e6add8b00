package eviction

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Options carries the parameters named strategies may need.
type Options struct {
	MaxAge       time.Duration
	Semantic     Semantic
	MinFreeBytes uint64
}

// Factory builds a strategy from options.
type Factory func(Options) (Strategy, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

func init() {
	Register("over-capacity", func(Options) (Strategy, error) {
		return OverCapacity{}, nil
	})
	Register("max-age", func(o Options) (Strategy, error) {
		if o.MaxAge <= 0 {
			return nil, errors.New("max-age strategy needs a positive max age")
		}
		return MaxAge{Age: o.MaxAge, Semantic: o.Semantic}, nil
	})
	Register("min-free", func(o Options) (Strategy, error) {
		if o.MinFreeBytes == 0 {
			return nil, errors.New("min-free strategy needs a minimum free size")
		}
		return MinFreeSpace{MinFreeBytes: o.MinFreeBytes}, nil
	})
}

// Register registers a new eviction strategy factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New returns a new instance of the strategy with the given name.
func New(name string, opts Options) (Strategy, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy not found: %s", name)
	}
	return factory(opts)
}

// NewChain builds every named strategy and chains them. A single name yields
// the strategy itself.
func NewChain(names []string, opts Options) (Strategy, error) {
	if len(names) == 0 {
		return nil, errors.New("no strategy configured")
	}
	chain := make(Chain, 0, len(names))
	for _, name := range names {
		s, err := New(name, opts)
		if err != nil {
			return nil, err
		}
		chain = append(chain, s)
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

// Names lists the registered strategies.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
