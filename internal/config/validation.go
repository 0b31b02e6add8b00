package config

import (
	"errors"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/lucasew/diskcache"
	"github.com/lucasew/diskcache/internal/hashutil"
)

// Validate rejects settings the cache could not start with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Dir) == "" {
		return newFieldError("dir", "must not be empty")
	}
	if len(c.Strategies) == 0 {
		return newFieldError("strategy", "at least one strategy is required")
	}
	known := diskcache.StrategyNames()
	for _, s := range c.Strategies {
		if !slices.Contains(known, s) {
			return newFieldError("strategy", "unknown strategy "+s+", expected one of "+strings.Join(known, "|"))
		}
	}
	if slices.Contains(c.Strategies, "max-age") && c.MaxAge <= 0 {
		return newFieldError("max-age", "must be positive with the max-age strategy")
	}
	if c.MaxAge < 0 {
		return newFieldError("max-age", "must not be negative")
	}
	if slices.Contains(c.Strategies, "min-free") && c.MinFree == 0 {
		return newFieldError("min-free", "must be set with the min-free strategy")
	}
	if _, err := diskcache.ParseSemantic(c.Semantic); err != nil {
		return newFieldError("semantic", "must be creation or modification")
	}
	if !hashutil.IsSupported(c.KeyHash) {
		return newFieldError("key-hash", "must be one of "+strings.Join(hashutil.Names(), "|"))
	}
	if c.QueueSize < 0 {
		return newFieldError("queue-size", "must not be negative")
	}
	if c.EnforceInterval < 0 {
		return newFieldError("enforce-interval", "must not be negative")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return newFieldError("log-level", "must be debug, info, warn or error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return newFieldError("log-format", "must be text or json")
	}
	if c.Log.MaxSize < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAge < 0 {
		return newFieldError("log-max-size", "log rotation settings must not be negative")
	}

	for _, u := range c.Server.Upstreams {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return newFieldError("upstream", "invalid upstream URL "+u)
		}
	}
	if c.Server.UpstreamTimeout < 0 {
		return newFieldError("upstream-timeout", "must not be negative")
	}
	return nil
}

// Strategy builds the configured eviction strategy.
func (c *Config) Strategy() (diskcache.Strategy, error) {
	semantic, err := diskcache.ParseSemantic(c.Semantic)
	if err != nil {
		return nil, err
	}
	return diskcache.NewStrategy(c.Strategies, diskcache.StrategyOptions{
		MaxAge:       c.MaxAge,
		Semantic:     semantic,
		MinFreeBytes: uint64(c.MinFree),
	})
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
