package pebble

import (
	"context"
	"testing"

	cdbpebble "github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/data-engineering-collective/minimalkv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := cdbpebble.Open("", &cdbpebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
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
}

func TestMissingKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "absent")
	assert.True(t, minimalkv.IsKeyNotFound(err))

	found, err := s.HasKey(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Put(ctx, "k", []byte("v"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	found, err := s.HasKey(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIterKeysBoundedByPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, k := range []string{"a-1", "a-2", "b-1", "a"} {
		_, err := s.Put(ctx, k, []byte("v"))
		require.NoError(t, err)
	}

	keys, err := minimalkv.Keys(ctx, s, "a-")
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "a-2"}, keys)

	all, err := minimalkv.Keys(ctx, s, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a-1", "a-2", "b-1"}, all)
}

func TestPrefixSuccessor(t *testing.T) {
	assert.Equal(t, []byte("ab"), prefixSuccessor([]byte("aa")))
	assert.Equal(t, []byte("b"), prefixSuccessor([]byte("a\xff")))
	assert.Nil(t, prefixSuccessor([]byte{0xff, 0xff}))
}

func TestValueCopyIsStable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Put(ctx, "k", []byte("stable"))
	require.NoError(t, err)

	value, err := s.Get(ctx, "k")
	require.NoError(t, err)

	// Later writes must not mutate earlier reads.
	_, err = s.Put(ctx, "k", []byte("change"))
	require.NoError(t, err)
	assert.Equal(t, []byte("stable"), value)
}
