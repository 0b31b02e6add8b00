package diskcache

import "github.com/lucasew/diskcache/internal/eviction"

type (
	// Strategy decides which entries to evict. It runs on the cache worker
	// after every size-increasing operation and every capacity change.
	Strategy = eviction.Strategy

	// Target is the cache as seen by a Strategy.
	Target = eviction.Target

	// StrategyFunc adapts a function to Strategy.
	StrategyFunc = eviction.Func

	// Semantic selects the timestamp an age-based strategy compares.
	Semantic = eviction.Semantic

	// OverCapacity evicts the least recently modified entries until the
	// cache fits its capacity. It is the default strategy.
	OverCapacity = eviction.OverCapacity

	// AgeThreshold evicts every entry older than a fixed cutoff.
	AgeThreshold = eviction.AgeThreshold

	// MaxAge evicts every entry older than a duration.
	MaxAge = eviction.MaxAge

	// MinFreeSpace evicts until the filesystem has enough room available.
	MinFreeSpace = eviction.MinFreeSpace

	// Chain runs strategies in order.
	Chain = eviction.Chain

	// StrategyOptions parameterizes strategies built by name.
	StrategyOptions = eviction.Options
)

const (
	CreationTime     = eviction.CreationTime
	ModificationTime = eviction.ModificationTime
)

// NewStrategy builds the named strategies, chained in the given order.
// Registered names are listed by StrategyNames.
func NewStrategy(names []string, opts StrategyOptions) (Strategy, error) {
	return eviction.NewChain(names, opts)
}

// StrategyNames lists the strategies NewStrategy knows.
func StrategyNames() []string { return eviction.Names() }

// ParseSemantic accepts "creation" or "modification".
func ParseSemantic(s string) (Semantic, error) { return eviction.ParseSemantic(s) }
