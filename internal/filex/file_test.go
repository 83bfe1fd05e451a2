package filex

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesAndIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, EnsureDir(fs, "data/users"))
	require.NoError(t, EnsureDir(fs, "data/users"))

	fi, err := fs.Stat("data/users")
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestEnsureDir_FailsOnReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	require.Error(t, EnsureDir(fs, "x"))
}

func TestJoin(t *testing.T) {
	got, err := Join("users", "AbC123")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("users", "AbC123"), got)

	for _, bad := range []string{"", "..", ".hidden", "a/b", `a\b`, "../etc/passwd", "x\x00y"} {
		_, err := Join("users", bad)
		require.True(t, errors.Is(err, ErrPathTraversal), "name %q must be rejected", bad)
	}
}

func TestWriteFileAtomic_ReplacesContent(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, WriteFileAtomic(fs, "consensus", []byte("one")))
	require.NoError(t, WriteFileAtomic(fs, "consensus", []byte("two")))

	got, err := afero.ReadFile(fs, "consensus")
	require.NoError(t, err)
	require.Equal(t, "two", string(got))

	ok, err := afero.Exists(fs, "consensus.tmp")
	require.NoError(t, err)
	require.False(t, ok, "temp file must not survive")
}
