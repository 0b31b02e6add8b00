// Package upstream downloads cache misses from other diskcache servers or
// from the original source URLs.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lucasew/diskcache/internal/errutil"
)

var (
	// ErrPartialWrite is returned when data was already written to the output
	// before a failure occurred, making fallback to another source unsafe.
	ErrPartialWrite = errors.New("partial write")

	// ErrAllSourcesFailed is returned when no server or direct source could
	// provide the content.
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrTooLarge is returned when a download exceeds Fetcher.MaxBytes.
	ErrTooLarge = errors.New("content too large")
)

// HTTPStatusError is returned when a source responds with a non-200 status code.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Fetcher tries the servers in order, then the source URLs.
type Fetcher struct {
	Client  *http.Client
	Servers []*Server

	// MaxBytes bounds a single download. Zero means no bound.
	MaxBytes int64

	Logger *slog.Logger
}

func NewFetcher(client *http.Client, servers []string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{Client: client}
	for _, s := range servers {
		f.Servers = append(f.Servers, NewServer(s, client))
	}
	return f
}

// CanFetch reports whether a miss for the given sources has anywhere to go.
func (f *Fetcher) CanFetch(urls []string) bool {
	return f != nil && (len(f.Servers) > 0 || len(urls) > 0)
}

// Fetch writes the content of key to out.
func (f *Fetcher) Fetch(ctx context.Context, key string, urls []string, out io.Writer) error {
	cw := &countingWriter{Writer: out}
	var lastErr error

	// 1. Try Servers
	for _, server := range f.Servers {
		lastErr = f.copyFrom(ctx, cw, func() (io.ReadCloser, error) {
			body, _, err := server.Get(ctx, key, urls)
			return body, err
		})
		if lastErr == nil {
			return nil
		}
		errutil.LogMsg(f.Logger, lastErr, "Failed to fetch from server", "server", server.BaseURL, "key", key)
		if cw.N > 0 {
			return fmt.Errorf("%w: %w", ErrPartialWrite, lastErr)
		}
	}

	// 2. Fallback to Direct Download
	for _, u := range urls {
		lastErr = f.copyFrom(ctx, cw, func() (io.ReadCloser, error) {
			return f.openDirect(ctx, u)
		})
		if lastErr == nil {
			return nil
		}
		errutil.LogMsg(f.Logger, lastErr, "Failed to fetch from source", "url", u, "key", key)
		if cw.N > 0 {
			return fmt.Errorf("%w: %w", ErrPartialWrite, lastErr)
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrAllSourcesFailed, lastErr)
	}
	return ErrAllSourcesFailed
}

func (f *Fetcher) openDirect(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		errutil.LogMsg(f.Logger, resp.Body.Close(), "Failed to close response body")
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

func (f *Fetcher) copyFrom(ctx context.Context, out *countingWriter, open func() (io.ReadCloser, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := open()
	if err != nil {
		return err
	}
	defer errutil.Close(f.Logger, body, "Failed to close response body")

	var r io.Reader = body
	if f.MaxBytes > 0 {
		r = io.LimitReader(body, f.MaxBytes+1)
	}
	n, err := io.Copy(out, r)
	if err != nil {
		return err
	}
	if f.MaxBytes > 0 && n > f.MaxBytes {
		return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.MaxBytes)
	}
	return nil
}

type countingWriter struct {
	Writer io.Writer
	N      int64
}

func (c *countingWriter) Write(p []byte) (n int, err error) {
	n, err = c.Writer.Write(p)
	c.N += int64(n)
	return n, err
}
