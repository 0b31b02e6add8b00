package eviction

import (
	"time"

	"github.com/spf13/afero"
)

// AgeThreshold removes every entry whose selected timestamp is strictly
// before Cutoff, whatever the cache size. An entry whose timestamp cannot be
// read is kept.
type AgeThreshold struct {
	Cutoff   time.Time
	Semantic Semantic
}

func (a AgeThreshold) Enforce(t Target, fsys afero.Fs) {
	log := t.Logger()
	entries, err := Entries(fsys, t.Path(), log)
	if err != nil {
		log.Error("Failed to list directory", "path", t.Path(), "error", err)
		return
	}

	var expired []string
	for _, e := range entries {
		ts, err := a.Semantic.Timestamp(fsys, e.Path)
		if err != nil {
			log.Debug("Keeping entry with unreadable timestamp", "path", e.Path, "semantic", a.Semantic.String(), "error", err)
			continue
		}
		if ts.Before(a.Cutoff) {
			expired = append(expired, e.Path)
		}
	}
	if len(expired) == 0 {
		return
	}

	removed := 0
	for _, path := range expired {
		if t.RemoveFile(path) {
			removed++
		}
	}
	log.Info("Evicted entries older than cutoff", "count", removed, "cutoff", a.Cutoff, "semantic", a.Semantic.String())
}

// MaxAge is an AgeThreshold whose cutoff moves with the clock: each pass
// removes entries older than Age.
type MaxAge struct {
	Age      time.Duration
	Semantic Semantic

	// Now defaults to time.Now.
	Now func() time.Time
}

func (m MaxAge) Enforce(t Target, fsys afero.Fs) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	AgeThreshold{Cutoff: now().Add(-m.Age), Semantic: m.Semantic}.Enforce(t, fsys)
}
