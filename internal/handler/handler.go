package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/lucasew/diskcache"
	"github.com/lucasew/diskcache/internal/errutil"
	"github.com/lucasew/diskcache/internal/upstream"
)

// Cache is the part of diskcache.Cache the handler needs.
type Cache interface {
	Get(key string) <-chan diskcache.Result
	Put(key string, data []byte) <-chan error
	Remove(key string)
}

// BlobHandler serves cache entries over HTTP at /blob/{key}.
//
// It implements a tiered lookup strategy:
// 1. Local Cache: Checks if the entry exists locally.
// 2. Upstream Servers: Checks configured upstream diskcache servers.
// 3. External URL: If ?url=... or X-Source-Urls is given and allowed, downloads and caches.
//
// Concurrent misses on one key share a single download.
type BlobHandler struct {
	Cache    Cache
	Fetcher  *upstream.Fetcher
	AllowURL bool

	// MaxPutBytes bounds request bodies on PUT. Zero means no bound.
	MaxPutBytes int64

	Logger *slog.Logger

	group singleflight.Group
}

func NewBlobHandler(cache Cache, fetcher *upstream.Fetcher, log *slog.Logger) *BlobHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BlobHandler{
		Cache:   cache,
		Fetcher: fetcher,
		Logger:  log,
	}
}

// Register mounts the handler on mux.
func (h *BlobHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /blob/{key...}", h.get)
	mux.HandleFunc("PUT /blob/{key...}", h.put)
	mux.HandleFunc("DELETE /blob/{key...}", h.remove)
}

func (h *BlobHandler) get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "Invalid path format. Expected /blob/{key}", http.StatusBadRequest)
		return
	}

	res := <-h.Cache.Get(key)
	if res.Err == nil {
		h.Logger.Debug("Cache hit", "key", key)
		h.serve(w, r, key, res.Data, "HIT")
		return
	}
	if !errors.Is(res.Err, diskcache.ErrNotFound) {
		http.Error(w, "Failed to read entry", http.StatusInternalServerError)
		return
	}

	h.Logger.Info("Cache miss", "key", key)

	if r.Method == http.MethodHead {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	var sources []string
	if h.AllowURL {
		fromHeader, err := upstream.DecodeSources(r.Header.Values(upstream.SourcesHeader))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sources = validSources(append(r.URL.Query()["url"], fromHeader...))
	}
	if !h.Fetcher.CanFetch(sources) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	v, err, shared := h.group.Do(key, func() (any, error) {
		var buf bytes.Buffer
		if err := h.Fetcher.Fetch(r.Context(), key, sources, &buf); err != nil {
			return nil, err
		}
		data := buf.Bytes()
		if err := <-h.Cache.Put(key, data); err != nil {
			// Still serve what was downloaded.
			errutil.ReportError(h.Logger, err, "Failed to store fetched entry", "key", key)
		}
		return data, nil
	})
	if err != nil {
		errutil.ReportError(h.Logger, err, "Failed to fetch", "key", key)
		http.Error(w, fmt.Sprintf("Failed to fetch: %v", err), http.StatusBadGateway)
		return
	}
	h.Logger.Debug("Fetched entry", "key", key, "shared", shared)
	h.serve(w, r, key, v.([]byte), "MISS") //nolint:forcetypeassert
}

func (h *BlobHandler) put(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "Invalid path format. Expected /blob/{key}", http.StatusBadRequest)
		return
	}

	body := r.Body
	if h.MaxPutBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.MaxPutBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Entry too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if err := <-h.Cache.Put(key, data); err != nil {
		http.Error(w, "Failed to store entry", http.StatusInternalServerError)
		return
	}
	h.setLink(w, key)
	w.WriteHeader(http.StatusCreated)
}

func (h *BlobHandler) remove(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "Invalid path format. Expected /blob/{key}", http.StatusBadRequest)
		return
	}
	h.Cache.Remove(key)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BlobHandler) serve(w http.ResponseWriter, r *http.Request, key string, data []byte, status string) {
	h.setLink(w, key)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Cache", status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		errutil.LogMsg(h.Logger, err, "Failed to write response", "key", key)
	}
}

// setLink sets the canonical Link header to the blob URL.
func (h *BlobHandler) setLink(w http.ResponseWriter, key string) {
	w.Header().Set("Link", fmt.Sprintf("</blob/%s>; rel=\"canonical\"", url.PathEscape(key)))
}

func validSources(raw []string) []string {
	var out []string
	for _, s := range raw {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
