package minimalkv

import (
	"bytes"
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainStore implements only the four primitives, so every composite
// operation exercises the derived path.
type plainStore struct {
	values map[string][]byte
}

func newPlainStore() *plainStore {
	return &plainStore{values: map[string][]byte{}}
}

func (s *plainStore) Delete(_ context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func (s *plainStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	value, ok := s.values[key]
	if !ok {
		return nil, NewKeyNotFound(key)
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

func (s *plainStore) PutReader(_ context.Context, key string, r io.Reader) (string, error) {
	value, err := io.ReadAll(r)
	if err != nil {
		return "", NewBackendFailure(key, err)
	}
	s.values[key] = value
	return key, nil
}

func (s *plainStore) IterKeys(_ context.Context, prefix string) iter.Seq2[string, error] {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return func(yield func(string, error) bool) {
		for _, k := range keys {
			if !yield(k, nil) {
				return
			}
		}
	}
}

func (s *plainStore) Close() error { return nil }

// fastStore adds the optional fast paths and records which were taken.
type fastStore struct {
	plainStore
	gets, puts, checks int
}

func (s *fastStore) Get(_ context.Context, key string) ([]byte, error) {
	s.gets++
	value, ok := s.values[key]
	if !ok {
		return nil, NewKeyNotFound(key)
	}
	return value, nil
}

func (s *fastStore) Put(_ context.Context, key string, value []byte) (string, error) {
	s.puts++
	s.values[key] = value
	return key, nil
}

func (s *fastStore) HasKey(_ context.Context, key string) (bool, error) {
	s.checks++
	_, ok := s.values[key]
	return ok, nil
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newPlainStore()

	stored, err := Put(ctx, s, "a-key", []byte("a value"))
	require.NoError(t, err)
	assert.Equal(t, "a-key", stored)

	value, err := Get(ctx, s, "a-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("a value"), value)
}

func TestGetMissingKey(t *testing.T) {
	_, err := Get(context.Background(), newPlainStore(), "absent")
	require.Error(t, err)
	assert.True(t, IsKeyNotFound(err))
}

func TestDerivedOperationsValidateKeys(t *testing.T) {
	ctx := context.Background()
	s := newPlainStore()

	_, err := Put(ctx, s, "", []byte("v"))
	assert.True(t, IsInvalidKey(err))

	_, err = Get(ctx, s, "bad/key")
	assert.True(t, IsInvalidKey(err))

	_, err = HasKey(ctx, s, "bad key")
	assert.True(t, IsInvalidKey(err))

	_, err = Copy(ctx, s, "ok", "bad/dest")
	assert.True(t, IsInvalidKey(err))

	assert.Empty(t, s.values, "invalid keys must never reach the backend")
}

func TestFastPathsPreferred(t *testing.T) {
	ctx := context.Background()
	s := &fastStore{plainStore: *newPlainStore()}

	_, err := Put(ctx, s, "k", []byte("v"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.puts)

	_, err = Get(ctx, s, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, s.gets)

	found, err := HasKey(ctx, s, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, s.checks)
}

func TestHasKeyDerivedFromOpen(t *testing.T) {
	ctx := context.Background()
	s := newPlainStore()
	_, err := Put(ctx, s, "present", []byte("v"))
	require.NoError(t, err)

	found, err := HasKey(ctx, s, "present")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = HasKey(ctx, s, "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKeysWithPrefix(t *testing.T) {
	ctx := context.Background()
	s := newPlainStore()
	for _, k := range []string{"a-1", "a-2", "b-1"} {
		_, err := Put(ctx, s, k, []byte("v"))
		require.NoError(t, err)
	}

	keys, err := Keys(ctx, s, "a-")
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "a-2"}, keys)

	all, err := Keys(ctx, s, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCopyAndURLForUnsupported(t *testing.T) {
	ctx := context.Background()
	s := newPlainStore()

	_, err := Copy(ctx, s, "src", "dst")
	assert.True(t, IsUnsupported(err))

	_, err = URLFor(ctx, s, "k")
	assert.True(t, IsUnsupported(err))
}

func TestPutTTLWithoutCapability(t *testing.T) {
	ctx := context.Background()
	s := newPlainStore()

	// UseDefault and NotSet degrade to a plain put.
	_, err := PutTTL(ctx, s, "k", []byte("v"), UseDefault)
	require.NoError(t, err)
	_, err = PutTTL(ctx, s, "k", []byte("v"), NotSet)
	require.NoError(t, err)

	_, err = PutTTL(ctx, s, "k", []byte("v"), Forever)
	assert.True(t, IsUnsupported(err))
	_, err = PutReaderTTL(ctx, s, "k", bytes.NewReader(nil), Expires(1))
	assert.True(t, IsUnsupported(err))
}

func TestFileTransfer(t *testing.T) {
	ctx := context.Background()
	s := newPlainStore()
	dir := t.TempDir()

	src := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(src, []byte("file content"), 0o644))

	stored, err := PutFile(ctx, s, "k", src)
	require.NoError(t, err)
	assert.Equal(t, "k", stored)

	dst := filepath.Join(dir, "out.bin")
	require.NoError(t, GetFile(ctx, s, "k", dst))
	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("file content"), out)
}

func TestIterPrefixes(t *testing.T) {
	ctx := context.Background()
	s := newPlainStore()
	for _, k := range []string{"a.x", "a.y", "b.z", "c"} {
		_, err := Put(ctx, s, k, []byte("v"))
		require.NoError(t, err)
	}

	var prefixes []string
	for p, err := range IterPrefixes(ctx, s, ".", "") {
		require.NoError(t, err)
		prefixes = append(prefixes, p)
	}
	assert.Equal(t, []string{"a.", "b.", "c"}, prefixes)
}
