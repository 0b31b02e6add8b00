package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/lucasew/diskcache"
	"github.com/lucasew/diskcache/internal/upstream"
)

func newTestCache(t *testing.T) *diskcache.Cache {
	t.Helper()
	c, err := diskcache.New(diskcache.Config{
		Dir:    "/cache",
		Fs:     afero.NewMemMapFs(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newMux(h *BlobHandler) *http.ServeMux {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func TestBlobHandler(t *testing.T) {
	cache := newTestCache(t)

	var originHits atomic.Int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		originHits.Add(1)
		switch r.URL.Path {
		case "/file1":
			_, _ = w.Write([]byte("content1"))
		case "/file2":
			_, _ = w.Write([]byte("content2"))
		case "/fail":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer origin.Close()

	h := NewBlobHandler(cache, upstream.NewFetcher(nil, nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.AllowURL = true
	mux := newMux(h)

	t.Run("Put And Get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/blob/notes/today.txt", strings.NewReader("hello"))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}

		req = httptest.NewRequest(http.MethodGet, "/blob/notes/today.txt", nil)
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != "hello" {
			t.Fatalf("expected 200 hello, got %d %q", w.Code, w.Body.String())
		}
		if w.Header().Get("X-Cache") != "HIT" {
			t.Errorf("expected HIT, got %q", w.Header().Get("X-Cache"))
		}
		if w.Header().Get("Link") != `</blob/notes%2Ftoday.txt>; rel="canonical"` {
			t.Errorf("unexpected Link header %q", w.Header().Get("Link"))
		}
	})

	t.Run("Head", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodHead, "/blob/notes/today.txt", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Header().Get("Content-Length") != "5" || w.Body.Len() != 0 {
			t.Errorf("unexpected HEAD response: %d %v %q", w.Code, w.Header(), w.Body.String())
		}

		req = httptest.NewRequest(http.MethodHead, "/blob/absent?url="+url.QueryEscape(origin.URL+"/file1"), nil)
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404 on HEAD miss, got %d", w.Code)
		}
	})

	t.Run("Download On Miss", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/blob/k1?url="+url.QueryEscape(origin.URL+"/file1"), nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != "content1" {
			t.Fatalf("expected 200 content1, got %d %q", w.Code, w.Body.String())
		}
		if w.Header().Get("X-Cache") != "MISS" {
			t.Errorf("expected MISS, got %q", w.Header().Get("X-Cache"))
		}

		// Served from the cache now.
		before := originHits.Load()
		req = httptest.NewRequest(http.MethodGet, "/blob/k1", nil)
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Body.String() != "content1" || originHits.Load() != before {
			t.Errorf("expected cached content1 without origin hit, got %q", w.Body.String())
		}
	})

	t.Run("Sources Header", func(t *testing.T) {
		val, err := upstream.EncodeSources([]string{origin.URL + "/file2"})
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodGet, "/blob/from-header", nil)
		req.Header.Set(upstream.SourcesHeader, val)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != "content2" {
			t.Errorf("expected 200 content2, got %d %q", w.Code, w.Body.String())
		}

		req = httptest.NewRequest(http.MethodGet, "/blob/bad-header", nil)
		req.Header.Set(upstream.SourcesHeader, "(unterminated")
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on malformed header, got %d", w.Code)
		}
	})

	t.Run("Failover", func(t *testing.T) {
		q := url.Values{"url": {origin.URL + "/fail", origin.URL + "/file2"}}
		req := httptest.NewRequest(http.MethodGet, "/blob/k2?"+q.Encode(), nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != "content2" {
			t.Errorf("expected 200 content2, got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("All Sources Fail", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/blob/k3?url="+url.QueryEscape(origin.URL+"/fail"), nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", w.Code)
		}
		if res := <-cache.Get("k3"); res.Err == nil {
			t.Error("failed download must not be cached")
		}
	})

	t.Run("Miss Without Sources", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/blob/nothing", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/blob/k1", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		req = httptest.NewRequest(http.MethodGet, "/blob/k1", nil)
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", w.Code)
		}
	})
}

func TestURLSourcesDisabledByDefault(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("origin must not be contacted")
	}))
	defer origin.Close()

	h := NewBlobHandler(newTestCache(t), upstream.NewFetcher(nil, nil), nil)
	req := httptest.NewRequest(http.MethodGet, "/blob/k?url="+url.QueryEscape(origin.URL), nil)
	w := httptest.NewRecorder()
	newMux(h).ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestUpstreamTier(t *testing.T) {
	// The upper tier is a diskcache server that already holds the entry.
	upper := newTestCache(t)
	if err := <-upper.Put("shared/key", []byte("from upper tier")); err != nil {
		t.Fatal(err)
	}
	upperServer := httptest.NewServer(newMux(NewBlobHandler(upper, nil, nil)))
	defer upperServer.Close()

	lower := newTestCache(t)
	h := NewBlobHandler(lower, upstream.NewFetcher(nil, []string{upperServer.URL}), nil)

	req := httptest.NewRequest(http.MethodGet, "/blob/shared%2Fkey", nil)
	w := httptest.NewRecorder()
	newMux(h).ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "from upper tier" {
		t.Fatalf("expected upper tier content, got %d %q", w.Code, w.Body.String())
	}
	if res := <-lower.Get("shared/key"); string(res.Data) != "from upper tier" {
		t.Errorf("lower tier not filled: %v", res.Err)
	}
}

func TestConcurrentMissesShareDownload(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte("slow"))
	}))
	defer origin.Close()

	h := NewBlobHandler(newTestCache(t), upstream.NewFetcher(nil, nil), nil)
	h.AllowURL = true
	mux := newMux(h)

	const n = 5
	var started, wg sync.WaitGroup
	started.Add(n)
	codes := make([]int, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/blob/slow?url="+url.QueryEscape(origin.URL), nil)
			w := httptest.NewRecorder()
			started.Done()
			mux.ServeHTTP(w, req)
			codes[i] = w.Code
		}()
	}
	started.Wait()
	for hits.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	// Give the other requests time to join the download in flight.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: status %d", i, code)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected one origin hit, got %d", hits.Load())
	}
}
