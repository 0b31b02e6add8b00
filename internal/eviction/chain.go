package eviction

import "github.com/spf13/afero"

// Chain runs several strategies in order on every pass.
type Chain []Strategy

func (c Chain) Enforce(t Target, fsys afero.Fs) {
	for _, s := range c {
		s.Enforce(t, fsys)
	}
}
