package upstream

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Server is another diskcache instance serving /blob/{key}.
//
// Chaining servers gives cache tiers: a miss here is asked of the next level
// before going to the original source.
type Server struct {
	BaseURL string
	Client  *http.Client
}

func NewServer(baseURL string, client *http.Client) *Server {
	if client == nil {
		client = http.DefaultClient
	}
	return &Server{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

// BlobURL returns the location of key on the server.
func (s *Server) BlobURL(key string) string {
	return s.BaseURL + "/blob/" + url.PathEscape(key)
}

// Exists checks if the key exists on the server using a HEAD request.
func (s *Server) Exists(ctx context.Context, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.BlobURL(key), nil)
	if err != nil {
		return false, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK, nil
}

// Get opens the content of key on the server. Source URLs are passed along
// in SourcesHeader so the server can fill itself on a miss.
func (s *Server) Get(ctx context.Context, key string, sources []string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BlobURL(key), nil)
	if err != nil {
		return nil, 0, err
	}
	if len(sources) > 0 {
		val, err := EncodeSources(sources)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set(SourcesHeader, val)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, 0, &HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}

func (s *Server) String() string { return s.BaseURL }
