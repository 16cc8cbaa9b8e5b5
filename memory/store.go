// Package memory provides an in-process, map-backed store. It is the
// reference backend: every derived operation and decorator is exercised
// against it in tests, and it backs the fast side of cache compositions.
package memory

import (
	"bytes"
	"context"
	"io"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/data-engineering-collective/minimalkv"
)

// Store keeps all values in a map guarded by a read-write mutex. Safe for
// concurrent use by multiple goroutines sharing one instance.
type Store struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{m: make(map[string][]byte)}
}

// Delete removes the value at key. Deleting an absent key is a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

// Open returns a reader over a stable copy of the value at key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

// PutReader drains r into memory and stores the result at key.
func (s *Store) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	value, err := io.ReadAll(r)
	if err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	return s.Put(ctx, key, value)
}

// IterKeys yields the keys present when iteration starts, in sorted order.
func (s *Store) IterKeys(_ context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.mu.RLock()
		keys := make([]string, 0, len(s.m))
		for k := range s.m {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		s.mu.RUnlock()
		sort.Strings(keys)
		for _, k := range keys {
			if !yield(k, nil) {
				return
			}
		}
	}
}

// Close is a no-op; the map is released with the store.
func (s *Store) Close() error {
	return nil
}

// Get returns the value at key without the reader indirection.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	value, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, minimalkv.NewKeyNotFound(key)
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores value at key directly.
func (s *Store) Put(_ context.Context, key string, value []byte) (string, error) {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.mu.Lock()
	s.m[key] = stored
	s.mu.Unlock()
	return key, nil
}

// HasKey probes the map directly.
func (s *Store) HasKey(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	_, ok := s.m[key]
	s.mu.RUnlock()
	return ok, nil
}

// Copy duplicates the value at source under dest.
func (s *Store) Copy(_ context.Context, source, dest string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.m[source]
	if !ok {
		return "", minimalkv.NewKeyNotFound(source)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.m[dest] = stored
	return dest, nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

var (
	_ minimalkv.Store      = (*Store)(nil)
	_ minimalkv.Getter     = (*Store)(nil)
	_ minimalkv.Putter     = (*Store)(nil)
	_ minimalkv.KeyChecker = (*Store)(nil)
	_ minimalkv.Copier     = (*Store)(nil)
)
