// Package keymap derives the file name of a cache entry from its key.
//
// Short keys are percent-escaped and used verbatim so that a directory listing
// stays readable. Keys whose escaped form would not fit in a single file name
// are replaced by a hex digest of the raw key, prefixed with HashPrefix.
package keymap

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lucasew/diskcache/internal/hashutil"
)

// MaxNameLen is the longest file name most filesystems accept (NAME_MAX).
const MaxNameLen = 255

// HashPrefix marks names produced by the digest branch. Escape never emits a
// raw '#', so escaped and hashed names cannot collide.
const HashPrefix = "#"

const upperhex = "0123456789ABCDEF"

// Mapper maps keys to paths below a cache directory.
type Mapper struct {
	dir  string
	algo string
}

func New(dir, algo string) (*Mapper, error) {
	if algo == "" {
		algo = hashutil.Default
	}
	if !hashutil.IsSupported(algo) {
		return nil, fmt.Errorf("unsupported key hash %q", algo)
	}
	return &Mapper{dir: dir, algo: algo}, nil
}

// Dir returns the cache directory.
func (m *Mapper) Dir() string { return m.dir }

// Path returns the absolute location of the file holding key.
func (m *Mapper) Path(key string) string {
	return filepath.Join(m.dir, m.Name(key))
}

// Name returns the file name for key. The escaped form is used when it is
// strictly shorter than MaxNameLen.
func (m *Mapper) Name(key string) string {
	if key != "" {
		if escaped := Escape(key); len(escaped) < MaxNameLen {
			return escaped
		}
	}
	sum, err := hashutil.HexSum(m.algo, []byte(key))
	if err != nil {
		// algo was validated in New
		panic(err)
	}
	return HashPrefix + sum
}

// Escape percent-encodes every byte that is not safe in a file name. A leading
// dot is encoded too, which keeps entries apart from hidden and temporary
// files. The mapping is injective because '%' itself is always encoded.
func Escape(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if isSafe(c) && (i > 0 || c != '.') {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

// IsEntryName reports whether name could have been produced by Name. Hidden
// files (including in-flight temporary files) are never entries.
func IsEntryName(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".")
}

func isSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}
