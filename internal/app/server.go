// Package app assembles caches and the HTTP server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lucasew/diskcache"
	"github.com/lucasew/diskcache/internal/config"
	"github.com/lucasew/diskcache/internal/handler"
	"github.com/lucasew/diskcache/internal/httpclient"
	"github.com/lucasew/diskcache/internal/metrics"
	"github.com/lucasew/diskcache/internal/upstream"
)

// OpenCache builds the cache described by cfg. obs may be nil.
func OpenCache(cfg *config.Config, log *slog.Logger, obs diskcache.Observer) (*diskcache.Cache, error) {
	if log == nil {
		log = slog.Default()
	}
	strat, err := cfg.Strategy()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize eviction strategy: %w", err)
	}
	log.Debug("Opening cache",
		"dir", cfg.Dir,
		"capacity", cfg.Capacity.String(),
		"strategy", cfg.Strategies,
	)
	return diskcache.New(diskcache.Config{
		Dir:             cfg.Dir,
		Capacity:        uint64(cfg.Capacity),
		Strategy:        strat,
		KeyHash:         cfg.KeyHash,
		Logger:          log,
		QueueSize:       cfg.QueueSize,
		EnforceInterval: cfg.EnforceInterval,
		Observer:        obs,
	})
}

// Server is the HTTP front of one cache.
type Server struct {
	HTTP     *http.Server
	Cache    *diskcache.Cache
	Registry *prometheus.Registry

	shutdownTimeout time.Duration
	log             *slog.Logger
}

// NewServer opens the cache and builds the HTTP server around it. The
// returned cleanup closes the cache.
func NewServer(cfg *config.Config, log *slog.Logger) (*Server, func(), error) {
	if log == nil {
		log = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var obs diskcache.Observer
	if cfg.Server.Metrics {
		obs = metrics.New(reg, cfg.Dir)
	}

	client, err := httpclient.New(cfg.Server.UpstreamTimeout, cfg.Server.UpstreamCA)
	if err != nil {
		return nil, nil, err
	}

	cache, err := OpenCache(cfg, log, obs)
	if err != nil {
		return nil, nil, err
	}

	fetcher := upstream.NewFetcher(client, cfg.Server.Upstreams)
	fetcher.Logger = log
	if cfg.Capacity < diskcache.Unbounded {
		fetcher.MaxBytes = int64(min(uint64(cfg.Capacity), 1<<62))
	}

	blobs := handler.NewBlobHandler(cache, fetcher, log)
	blobs.AllowURL = cfg.Server.AllowURL

	mux := http.NewServeMux()
	blobs.Register(mux)
	if cfg.Server.Metrics {
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Info("Configured server",
		"addr", cfg.Server.Listen,
		"cache_dir", cfg.Dir,
		"upstreams", len(cfg.Server.Upstreams),
		"allow_url", cfg.Server.AllowURL,
	)

	s := &Server{
		HTTP: &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		Cache:           cache,
		Registry:        reg,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		log:             log,
	}
	cleanup := func() {
		_ = cache.Close()
	}
	return s, cleanup, nil
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("Starting server", "addr", ln.Addr().String())
		if err := s.HTTP.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		timeout := s.shutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.log.Info("Shutting down server")
		return s.HTTP.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.HTTP.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
