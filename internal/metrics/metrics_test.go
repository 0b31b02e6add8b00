package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasew/diskcache"
)

func TestObserveOp(t *testing.T) {
	c := New(prometheus.NewRegistry(), "test")

	c.ObserveOp(diskcache.OpGet, nil)
	c.ObserveOp(diskcache.OpGet, diskcache.ErrNotFound)
	c.ObserveOp(diskcache.OpGet, diskcache.ErrNotFound)
	c.ObserveOp(diskcache.OpPut, errors.New("disk full"))

	assert.InDelta(t, 1, testutil.ToFloat64(c.hits), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.misses), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.operations.WithLabelValues("get", "not_found")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.operations.WithLabelValues("put", "error")), 0)
}

func TestWithCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := New(reg, "mem")
	c, err := diskcache.New(diskcache.Config{
		Dir:      "/cache",
		Fs:       afero.NewMemMapFs(),
		Capacity: 10,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Observer: obs,
	})
	require.NoError(t, err)
	defer c.Close()

	c.Put("a", make([]byte, 6))
	c.Put("b", make([]byte, 6))
	require.NoError(t, c.Wait(context.Background()))

	assert.InDelta(t, 1, testutil.ToFloat64(obs.evictions), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(obs.evicted), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(obs.size), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(obs.capacity), 0)

	n, err := testutil.GatherAndCount(reg, "diskcache_size_bytes")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTwoCachesShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() {
		New(reg, "one")
		New(reg, "two")
	})
}
