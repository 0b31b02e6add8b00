// Package config loads the settings of the command line tools from flags,
// environment variables and an optional config file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, as in DISKCACHE_CAPACITY.
const EnvPrefix = "DISKCACHE"

// SetDefaults registers the default of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dir", "./cache")
	v.SetDefault("capacity", "1GiB")
	v.SetDefault("strategy", []string{"over-capacity"})
	v.SetDefault("max-age", "0s")
	v.SetDefault("min-free", "0")
	v.SetDefault("semantic", "modification")
	v.SetDefault("key-hash", "md5")
	v.SetDefault("queue-size", 1024)
	v.SetDefault("enforce-interval", "0s")

	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("log-file", "")
	v.SetDefault("log-max-size", 100)
	v.SetDefault("log-max-backups", 10)
	v.SetDefault("log-max-age", 0)
	v.SetDefault("log-compress", true)

	v.SetDefault("listen", ":8080")
	v.SetDefault("upstream", []string{})
	v.SetDefault("upstream-timeout", "30s")
	v.SetDefault("upstream-ca", "")
	v.SetDefault("allow-url", false)
	v.SetDefault("metrics", true)
	v.SetDefault("shutdown-timeout", "10s")
}

// BindEnv makes every setting readable from DISKCACHE_* variables, with
// dashes turned into underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads path, when given, and decodes v into a validated Config.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absDir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	cfg.Dir = absDir

	return &cfg, nil
}

// New returns a viper instance with defaults and environment binding, ready
// for flags to be bound on it.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func applyDefaults(c *Config) {
	c.Semantic = strings.ToLower(strings.TrimSpace(c.Semantic))
	c.KeyHash = strings.ToLower(strings.TrimSpace(c.KeyHash))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))

	strategies := c.Strategies[:0]
	for _, s := range c.Strategies {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			strategies = append(strategies, s)
		}
	}
	c.Strategies = strategies

	if c.Server.UpstreamTimeout == 0 {
		c.Server.UpstreamTimeout = 30 * time.Second
	}
}
