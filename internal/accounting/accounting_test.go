package accounting

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statFailFs fails Stat for one path.
type statFailFs struct {
	afero.Fs
	failPath string
}

func (s statFailFs) Stat(name string) (os.FileInfo, error) {
	if name == s.failPath {
		return nil, os.ErrPermission
	}
	return s.Fs.Stat(name)
}

func TestApplyWrite(t *testing.T) {
	a := New(nil)

	require.NoError(t, a.ApplyWrite(0, false, 100))
	assert.EqualValues(t, 100, a.Size())

	require.NoError(t, a.ApplyWrite(100, true, 40))
	assert.EqualValues(t, 40, a.Size())
}

func TestApplyRemovalClampsOnDrift(t *testing.T) {
	a := New(nil)
	a.Reset(10)

	require.NoError(t, a.ApplyRemoval(4))
	assert.EqualValues(t, 6, a.Size())

	err := a.ApplyRemoval(50)
	assert.True(t, errors.Is(err, ErrDrift))
	assert.EqualValues(t, 0, a.Size())
}

func TestRecalculate(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/cache/sub", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/cache/a", make([]byte, 10), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/cache/b", make([]byte, 25), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/cache/.put-123", make([]byte, 1000), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/cache/sub/nested", make([]byte, 1000), 0o644))

	a := New(nil)
	a.Reset(999)
	assert.EqualValues(t, 35, a.Recalculate(fsys, "/cache"))
	assert.EqualValues(t, 35, a.Size())

	t.Run("skips unreadable entries", func(t *testing.T) {
		total := a.Recalculate(statFailFs{Fs: fsys, failPath: "/cache/b"}, "/cache")
		assert.EqualValues(t, 10, total)
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		a.Reset(5)
		assert.EqualValues(t, 0, a.Recalculate(fsys, "/nope"))
		assert.EqualValues(t, 0, a.Size())
	})
}
