package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/data-engineering-collective/minimalkv"
)

// newTestStore connects to a local Redis and skips when none is running.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	options := DefaultOptions()
	options.DB = 15
	s := Open(options)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		s.Close()
		t.Skipf("no redis server at %s: %v", options.Address, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	t.Cleanup(func() { s.Delete(ctx, "minimalkv-test-roundtrip") })

	stored, err := minimalkv.Put(ctx, s, "minimalkv-test-roundtrip", []byte("a value"))
	require.NoError(t, err)
	assert.Equal(t, "minimalkv-test-roundtrip", stored)

	value, err := minimalkv.Get(ctx, s, "minimalkv-test-roundtrip")
	require.NoError(t, err)
	assert.Equal(t, []byte("a value"), value)
}

func TestMissingKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "minimalkv-test-absent")
	assert.True(t, minimalkv.IsKeyNotFound(err))

	found, err := s.HasKey(ctx, "minimalkv-test-absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutTTLExpires(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	t.Cleanup(func() { s.Delete(ctx, "minimalkv-test-ttl") })

	_, err := s.PutTTL(ctx, "minimalkv-test-ttl", []byte("v"), minimalkv.Expires(50*time.Millisecond))
	require.NoError(t, err)

	found, err := s.HasKey(ctx, "minimalkv-test-ttl")
	require.NoError(t, err)
	assert.True(t, found)

	time.Sleep(150 * time.Millisecond)
	found, err = s.HasKey(ctx, "minimalkv-test-ttl")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEscapeMatch(t *testing.T) {
	assert.Equal(t, "plain", escapeMatch("plain"))
	assert.Equal(t, `a\*b\?c`, escapeMatch("a*b?c"))
	assert.Equal(t, `\[set\]`, escapeMatch("[set]"))
}
