package memory

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/data-engineering-collective/minimalkv"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	stored, err := minimalkv.Put(ctx, s, "a-key", []byte("a value"))
	require.NoError(t, err)
	assert.Equal(t, "a-key", stored)

	value, err := minimalkv.Get(ctx, s, "a-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("a value"), value)

	rc, err := s.Open(ctx, "a-key")
	require.NoError(t, err)
	streamed, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, []byte("a value"), streamed)
}

func TestMissingKey(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "absent")
	assert.True(t, minimalkv.IsKeyNotFound(err))

	_, err = s.Open(ctx, "absent")
	assert.True(t, minimalkv.IsKeyNotFound(err))
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Put(ctx, "k", []byte("v"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.Equal(t, 0, s.Len())
}

func TestIterKeysSortedWithPrefix(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"b", "a-2", "a-1", "c"} {
		_, err := s.Put(ctx, k, []byte("v"))
		require.NoError(t, err)
	}

	keys, err := minimalkv.Keys(ctx, s, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "a-2", "b", "c"}, keys)

	keys, err = minimalkv.Keys(ctx, s, "a-")
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1", "a-2"}, keys)
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Put(ctx, "src", []byte("v"))
	require.NoError(t, err)

	dest, err := s.Copy(ctx, "src", "dst")
	require.NoError(t, err)
	assert.Equal(t, "dst", dest)

	value, err := s.Get(ctx, "dst")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	_, err = s.Copy(ctx, "absent", "dst")
	assert.True(t, minimalkv.IsKeyNotFound(err))
}

func TestValuesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()

	original := []byte("immutable")
	_, err := s.Put(ctx, "k", original)
	require.NoError(t, err)
	original[0] = 'X'

	value, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), value)

	// Mutating a returned value must not leak back into the store.
	value[0] = 'Y'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), again)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n byte) {
			defer wg.Done()
			key := "key-" + string('a'+n)
			for j := 0; j < 100; j++ {
				_, err := s.Put(ctx, key, []byte{n})
				assert.NoError(t, err)
				_, err = s.Get(ctx, key)
				assert.NoError(t, err)
			}
		}(byte(i))
	}
	wg.Wait()
	assert.Equal(t, 8, s.Len())
}
