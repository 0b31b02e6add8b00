package policy_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/lucasew/diskcache/internal/eviction/policy"
	"github.com/lucasew/diskcache/internal/eviction/policy/minfree"
)

func TestMaxSize(t *testing.T) {
	var p policy.Policy = policy.MaxSize{Limit: 100}

	cases := map[uint64]uint64{0: 0, 100: 0, 101: 1, 250: 150}
	for current, want := range cases {
		got, err := p.BytesToFree(current)
		if err != nil {
			t.Fatalf("BytesToFree(%d) failed: %v", current, err)
		}
		if got != want {
			t.Errorf("BytesToFree(%d) = %d, want %d", current, got, want)
		}
	}
}

func TestMinFree(t *testing.T) {
	free := uint64(300)
	var p policy.Policy = minfree.Policy{
		Path:         "/cache",
		MinFreeBytes: 1000,
		FreeSpace:    func(string) (uint64, error) { return free, nil },
	}

	got, err := p.BytesToFree(5000)
	if err != nil {
		t.Fatalf("BytesToFree failed: %v", err)
	}
	if got != 700 {
		t.Errorf("expected 700 bytes to free, got %d", got)
	}

	free = 2000
	got, err = p.BytesToFree(5000)
	if err != nil {
		t.Fatalf("BytesToFree failed: %v", err)
	}
	if got != 0 {
		t.Errorf("expected nothing to free, got %d", got)
	}

	failing := minfree.Policy{
		MinFreeBytes: 1,
		FreeSpace:    func(string) (uint64, error) { return 0, errors.New("statfs") },
	}
	if _, err := failing.BytesToFree(0); err == nil {
		t.Error("expected error when free space is unknown")
	}
}

func TestMinFreeLogsThroughLogger(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})).With("cache", "/cache")
	p := minfree.Policy{
		Path:         "/cache",
		MinFreeBytes: 10,
		FreeSpace:    func(string) (uint64, error) { return 50, nil },
		Logger:       log,
	}
	if _, err := p.BytesToFree(0); err != nil {
		t.Fatal(err)
	}
	if out := logs.String(); !strings.Contains(out, "Disk space check") || !strings.Contains(out, "cache=/cache") {
		t.Errorf("disk space check not logged with the cache logger: %q", out)
	}
}

func TestAvailableOnTempDir(t *testing.T) {
	if _, err := minfree.Available(t.TempDir()); err != nil {
		t.Skipf("free space not available here: %v", err)
	}
}
