// Package redis backs the store contract with a Redis database. Values live
// in plain string keys; expiry uses Redis' native TTL support.
package redis

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"iter"

	"github.com/redis/go-redis/v9"

	"github.com/data-engineering-collective/minimalkv"
)

// Options holds the Redis connection settings.
type Options struct {
	// Address of the Redis server (cluster).
	Address string
	// Password required when connecting to the Redis server.
	Password string
	// DB to connect to.
	DB int
	// TLS config.
	TLSConfig *tls.Config
	// DefaultTTL is applied to writes that pass minimalkv.UseDefault.
	// The zero value performs no expiry configuration.
	DefaultTTL minimalkv.TTL
}

// DefaultOptions connects to a local unauthenticated server.
func DefaultOptions() Options {
	return Options{
		Address:  "localhost:6379",
		Password: "", // no password set
		DB:       0,  // use default DB
	}
}

// Store adapts a go-redis client to the store contract.
type Store struct {
	client     *redis.Client
	defaultTTL minimalkv.TTL
	owned      bool
}

// New wraps an existing client. The caller keeps ownership; Close will not
// close the client.
func New(client *redis.Client) *Store {
	return &Store{client: client, defaultTTL: minimalkv.NotSet}
}

// Open dials a new connection from options and returns a store owning it.
func Open(options Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:      options.Address,
		Password:  options.Password,
		DB:        options.DB,
		TLSConfig: options.TLSConfig,
	})
	ttl := options.DefaultTTL
	if ttl.IsDefault() {
		ttl = minimalkv.NotSet
	}
	return &Store{client: client, defaultTTL: ttl, owned: true}
}

// Client exposes the underlying go-redis client.
func (s *Store) Client() *redis.Client {
	return s.client
}

// Ping tests connectivity (PONG should be returned).
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return minimalkv.NewBackendFailure("", err)
	}
	return nil
}

// Delete removes key with DEL; deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return minimalkv.NewBackendFailure(key, err)
	}
	return nil
}

// Open returns a reader over the value fetched with GET.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

// PutReader drains r and stores the result with the store's default TTL.
func (s *Store) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	return s.PutReaderTTL(ctx, key, r, minimalkv.UseDefault)
}

// IterKeys scans the keyspace with SCAN MATCH prefix*, yielding keys as the
// cursor advances.
func (s *Store) IterKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		it := s.client.Scan(ctx, 0, escapeMatch(prefix)+"*", 0).Iterator()
		for it.Next(ctx) {
			if !yield(it.Val(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield("", minimalkv.NewBackendFailure("", err))
		}
	}
}

// escapeMatch escapes glob metacharacters so the prefix is matched verbatim.
func escapeMatch(prefix string) string {
	var out []byte
	for i := 0; i < len(prefix); i++ {
		switch c := prefix[i]; c {
		case '*', '?', '[', ']', '^', '\\':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// Close closes the client when this store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

// Get fetches the value with GET.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, minimalkv.NewKeyNotFound(key)
		}
		return nil, minimalkv.NewBackendFailure(key, err)
	}
	return value, nil
}

// Put stores value with the store's default TTL.
func (s *Store) Put(ctx context.Context, key string, value []byte) (string, error) {
	return s.PutTTL(ctx, key, value, minimalkv.UseDefault)
}

// HasKey probes with EXISTS.
func (s *Store) HasKey(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, minimalkv.NewBackendFailure(key, err)
	}
	return n > 0, nil
}

// PutTTL stores value at key. NotSet and Forever both issue a plain SET,
// which in Redis also clears any previous timeout; a finite TTL issues SET
// with expiration.
func (s *Store) PutTTL(ctx context.Context, key string, value []byte, ttl minimalkv.TTL) (string, error) {
	if err := ttl.Validate(); err != nil {
		return "", err
	}
	ttl = ttl.Resolve(s.defaultTTL)
	expiry, finite := ttl.Expiry()
	if !finite {
		expiry = 0
	}
	if err := s.client.Set(ctx, key, value, expiry).Err(); err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	return key, nil
}

// PutReaderTTL drains r into memory and delegates to PutTTL; Redis has no
// streaming write.
func (s *Store) PutReaderTTL(ctx context.Context, key string, r io.Reader, ttl minimalkv.TTL) (string, error) {
	value, err := io.ReadAll(r)
	if err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	return s.PutTTL(ctx, key, value, ttl)
}

// DefaultTTL returns the expiry applied when callers pass UseDefault.
func (s *Store) DefaultTTL() minimalkv.TTL {
	return s.defaultTTL
}

var (
	_ minimalkv.Store      = (*Store)(nil)
	_ minimalkv.Getter     = (*Store)(nil)
	_ minimalkv.Putter     = (*Store)(nil)
	_ minimalkv.KeyChecker = (*Store)(nil)
	_ minimalkv.TTLStore   = (*Store)(nil)
)
