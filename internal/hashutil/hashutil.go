package hashutil

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"sync"
)

// Default is the digest used for file names when none is configured. It is
// 128 bits wide, which keeps hashed names short.
const Default = "md5"

type HashFactory func() hash.Hash

var (
	registryMu sync.RWMutex
	registry   = map[string]HashFactory{
		"md5":    md5.New,
		"sha1":   sha1.New,
		"sha256": sha256.New,
	}
)

func Register(name string, factory HashFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

func GetHasher(name string) (hash.Hash, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm: %s", name)
	}
	return factory(), nil
}

func IsSupported(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Names lists the registered algorithms in lexical order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HexSum returns the lowercase hex digest of data.
func HexSum(name string, data []byte) (string, error) {
	h, err := GetHasher(name)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
