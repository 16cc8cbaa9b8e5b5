// Package pebble backs the store contract with an embedded pebble database.
// The ordered key layout makes prefix enumeration a bounded range scan.
package pebble

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"

	"github.com/cockroachdb/pebble/v2"

	"github.com/data-engineering-collective/minimalkv"
)

// Store adapts a pebble database to the store contract.
type Store struct {
	db    *pebble.DB
	owned bool
}

// New wraps an existing database; the caller keeps ownership.
func New(db *pebble.DB) *Store {
	return &Store{db: db}
}

// Open opens (or creates) a pebble database at dir and returns a store
// owning it.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, minimalkv.NewBackendFailure("", err)
	}
	return &Store{db: db, owned: true}, nil
}

// Delete removes key; pebble deletes are blind writes, absent keys are a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		return minimalkv.NewBackendFailure(key, err)
	}
	return nil
}

// Open returns a reader over a stable copy of the value.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

// PutReader drains r and delegates to Put.
func (s *Store) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	value, err := io.ReadAll(r)
	if err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	return s.Put(ctx, key, value)
}

// IterKeys scans the half-open range [prefix, successor(prefix)) so only
// matching keys are visited.
func (s *Store) IterKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		opts := &pebble.IterOptions{}
		if prefix != "" {
			opts.LowerBound = []byte(prefix)
			opts.UpperBound = prefixSuccessor([]byte(prefix))
		}
		it, err := s.db.NewIterWithContext(ctx, opts)
		if err != nil {
			yield("", minimalkv.NewBackendFailure("", err))
			return
		}
		defer it.Close()
		for it.First(); it.Valid(); it.Next() {
			if !yield(string(it.Key()), nil) {
				return
			}
		}
		if err := it.Error(); err != nil {
			yield("", minimalkv.NewBackendFailure("", err))
		}
	}
}

// prefixSuccessor returns the shortest key greater than every key starting
// with prefix, or nil when no upper bound exists (all-0xff prefix).
func prefixSuccessor(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// Close closes the database when this store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Get fetches the value, copying it out before releasing pebble's buffer.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	data, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, minimalkv.NewKeyNotFound(key)
		}
		return nil, minimalkv.NewBackendFailure(key, err)
	}
	value := make([]byte, len(data))
	copy(value, data)
	if err := closer.Close(); err != nil {
		return nil, minimalkv.NewBackendFailure(key, err)
	}
	return value, nil
}

// Put stores value durably.
func (s *Store) Put(_ context.Context, key string, value []byte) (string, error) {
	if err := s.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	return key, nil
}

// HasKey probes with a point lookup, discarding the value.
func (s *Store) HasKey(ctx context.Context, key string) (bool, error) {
	_, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, minimalkv.NewBackendFailure(key, err)
	}
	closer.Close()
	return true, nil
}

var (
	_ minimalkv.Store      = (*Store)(nil)
	_ minimalkv.Getter     = (*Store)(nil)
	_ minimalkv.Putter     = (*Store)(nil)
	_ minimalkv.KeyChecker = (*Store)(nil)
)
