package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasew/diskcache"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.Dir))
	assert.Equal(t, ByteSize(1<<30), cfg.Capacity)
	assert.Equal(t, []string{"over-capacity"}, cfg.Strategies)
	assert.Equal(t, "md5", cfg.KeyHash)
	assert.Equal(t, 1024, cfg.QueueSize)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.UpstreamTimeout)

	s, err := cfg.Strategy()
	require.NoError(t, err)
	assert.IsType(t, diskcache.OverCapacity{}, s)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DISKCACHE_CAPACITY", "512MiB")
	t.Setenv("DISKCACHE_STRATEGY", "over-capacity,max-age")
	t.Setenv("DISKCACHE_MAX_AGE", "36h")
	t.Setenv("DISKCACHE_LOG_LEVEL", "DEBUG")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, ByteSize(512<<20), cfg.Capacity)
	assert.Equal(t, []string{"over-capacity", "max-age"}, cfg.Strategies)
	assert.Equal(t, 36*time.Hour, cfg.MaxAge)
	assert.Equal(t, "debug", cfg.Log.Level)

	s, err := cfg.Strategy()
	require.NoError(t, err)
	assert.IsType(t, diskcache.Chain{}, s)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diskcache.yaml")
	content := `
dir: /var/cache/blobs
capacity: 2GB
strategy: [min-free]
min-free: 10GiB
key-hash: sha256
log-format: json
upstream:
  - http://mirror.internal:8080
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/blobs", cfg.Dir)
	assert.Equal(t, ByteSize(2_000_000_000), cfg.Capacity)
	assert.Equal(t, ByteSize(10<<30), cfg.MinFree)
	assert.Equal(t, "sha256", cfg.KeyHash)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"http://mirror.internal:8080"}, cfg.Server.Upstreams)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Dir:        "/tmp/cache",
			Strategies: []string{"over-capacity"},
			Semantic:   "modification",
			KeyHash:    "md5",
			Log:        LogConfig{Level: "info", Format: "text"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty dir", func(c *Config) { c.Dir = " " }, "dir"},
		{"no strategy", func(c *Config) { c.Strategies = nil }, "strategy"},
		{"unknown strategy", func(c *Config) { c.Strategies = []string{"lru"} }, "strategy"},
		{"max-age without age", func(c *Config) { c.Strategies = []string{"max-age"} }, "max-age"},
		{"min-free without size", func(c *Config) { c.Strategies = []string{"min-free"} }, "min-free"},
		{"bad semantic", func(c *Config) { c.Semantic = "access" }, "semantic"},
		{"bad hash", func(c *Config) { c.KeyHash = "crc32" }, "key-hash"},
		{"negative queue", func(c *Config) { c.QueueSize = -1 }, "queue-size"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log-level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log-format"},
		{"bad upstream", func(c *Config) { c.Server.Upstreams = []string{"ftp://x"} }, "upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			var fe FieldError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestParseByteSize(t *testing.T) {
	for in, want := range map[string]ByteSize{
		"":       0,
		"1000":   1000,
		"1KiB":   1024,
		"1.5 MB": 1_500_000,
	} {
		got, err := ParseByteSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseByteSize("lots")
	assert.Error(t, err)
	assert.Equal(t, "1.0 KiB", ByteSize(1024).String())
}
