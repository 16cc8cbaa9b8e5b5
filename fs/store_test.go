package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/data-engineering-collective/minimalkv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNewRequiresExistingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "a-file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file)
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	stored, err := minimalkv.Put(ctx, s, "a-key", []byte("a value"))
	require.NoError(t, err)
	assert.Equal(t, "a-key", stored)

	value, err := minimalkv.Get(ctx, s, "a-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("a value"), value)

	raw, err := os.ReadFile(filepath.Join(s.Root(), "a-key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("a value"), raw)
}

func TestMissingKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Open(ctx, "absent")
	assert.True(t, minimalkv.IsKeyNotFound(err))

	found, err := s.HasKey(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := minimalkv.Put(ctx, s, "k", []byte("v"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
}

func TestSlashKeysMapToSubdirectories(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.PutReader(ctx, "dir/sub/file", strings.NewReader("nested"))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(s.Root(), "dir", "sub", "file"))
	require.NoError(t, err)
	assert.Equal(t, []byte("nested"), raw)

	keys, err := minimalkv.Keys(ctx, s, "dir/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/sub/file"}, keys)
}

func TestDeletePrunesEmptyParents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.PutReader(ctx, "dir/sub/file", strings.NewReader("v"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "dir/sub/file"))

	_, err = os.Stat(filepath.Join(s.Root(), "dir"))
	assert.True(t, os.IsNotExist(err))
	// The root itself survives.
	_, err = os.Stat(s.Root())
	assert.NoError(t, err)
}

func TestKeyEscapeRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.PutReader(ctx, "..", strings.NewReader("v"))
	assert.True(t, minimalkv.IsInvalidKey(err))

	_, err = s.PutReader(ctx, "../outside", strings.NewReader("v"))
	assert.True(t, minimalkv.IsInvalidKey(err))
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := minimalkv.Put(ctx, s, "src", []byte("v"))
	require.NoError(t, err)

	dest, err := s.Copy(ctx, "src", "dst")
	require.NoError(t, err)
	assert.Equal(t, "dst", dest)

	value, err := minimalkv.Get(ctx, s, "dst")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	_, err = s.Copy(ctx, "absent", "dst")
	assert.True(t, minimalkv.IsKeyNotFound(err))
}

func TestURLFor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := minimalkv.Put(ctx, s, "a-key", []byte("v"))
	require.NoError(t, err)

	u, err := s.URLFor(ctx, "a-key")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
	assert.True(t, strings.HasSuffix(u, "/a-key"))
}

func TestWithPermissions(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir(), WithPermissions(0o600))
	require.NoError(t, err)

	_, err = minimalkv.Put(ctx, s, "k", []byte("v"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(s.Root(), "k"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestIterKeysStopsEarly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, k := range []string{"a", "b", "c"} {
		_, err := minimalkv.Put(ctx, s, k, []byte("v"))
		require.NoError(t, err)
	}

	var seen int
	for _, err := range s.IterKeys(ctx, "") {
		require.NoError(t, err)
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}
