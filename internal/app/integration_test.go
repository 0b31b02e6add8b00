//go:build integration

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestReadThroughFromContainer fills the cache from a real nginx origin.
func TestReadThroughFromContainer(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "nginx:alpine",
		ExposedPorts: []string{"80/tcp"},
		WaitingFor:   wait.ForHTTP("/").WithPort("80/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start container: %v", err)
	}
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "80")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}
	origin := fmt.Sprintf("http://%s:%s/index.html", host, port.Port())

	cfg := testConfig(t)
	cfg.Server.AllowURL = true
	srv, cleanup, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer cleanup()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = srv.Serve(serveCtx, ln) }()

	blobURL := "http://" + ln.Addr().String() + "/blob/nginx/index.html?url=" + url.QueryEscape(origin)

	for i, want := range []string{"MISS", "HIT"} {
		resp, err := http.Get(blobURL)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status %d: %s", i, resp.StatusCode, body)
		}
		if !strings.Contains(string(body), "nginx") {
			t.Errorf("request %d: unexpected body %q", i, body)
		}
		if got := resp.Header.Get("X-Cache"); got != want {
			t.Errorf("request %d: X-Cache %q, want %q", i, got, want)
		}
	}

	if _, err := os.Stat(srv.Cache.PathForKey("nginx/index.html")); err != nil {
		t.Errorf("entry not on disk: %v", err)
	}
}
