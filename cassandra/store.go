// Package cassandra backs the store contract with a Cassandra table of
// (key text PRIMARY KEY, value blob) rows. Expiry maps onto Cassandra's
// native USING TTL.
package cassandra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/data-engineering-collective/minimalkv"
)

// Config contains configuration for connecting to a Cassandra cluster.
type Config struct {
	// ClusterHosts lists contact points for the Cassandra cluster.
	ClusterHosts []string
	// Keyspace holding the value table.
	Keyspace string
	// Table name; defaults to "minimalkv".
	Table string
	// Consistency is the default consistency level for queries.
	Consistency gocql.Consistency
	// ConnectionTimeout is the session connection timeout.
	ConnectionTimeout time.Duration
	// Authenticator is used when the cluster requires authentication.
	Authenticator gocql.Authenticator
	// CreateIfMissing creates the value table on first use.
	CreateIfMissing bool
	// DefaultTTL is applied to writes that pass minimalkv.UseDefault.
	DefaultTTL minimalkv.TTL
}

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store adapts one table of a Cassandra session to the store contract.
type Store struct {
	session    *gocql.Session
	table      string
	defaultTTL minimalkv.TTL
	owned      bool
}

// Open connects to the cluster described by config and returns a store
// owning the session.
func Open(ctx context.Context, config Config) (*Store, error) {
	if len(config.ClusterHosts) == 0 {
		return nil, minimalkv.NewConfigParse("missing required option: host")
	}
	if config.Keyspace == "" {
		return nil, minimalkv.NewConfigParse("missing required option: keyspace")
	}
	cluster := gocql.NewCluster(config.ClusterHosts...)
	cluster.Keyspace = config.Keyspace
	if config.Consistency != 0 {
		cluster.Consistency = config.Consistency
	}
	if config.ConnectionTimeout > 0 {
		cluster.ConnectTimeout = config.ConnectionTimeout
	}
	if config.Authenticator != nil {
		cluster.Authenticator = config.Authenticator
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, minimalkv.NewBackendFailure("", err)
	}
	s, err := New(ctx, session, config)
	if err != nil {
		session.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing session. The caller keeps ownership of the session
// unless the store was built via Open.
func New(ctx context.Context, session *gocql.Session, config Config) (*Store, error) {
	table := config.Table
	if table == "" {
		table = "minimalkv"
	}
	if !identRe.MatchString(table) {
		return nil, minimalkv.NewConfigParse("invalid table name %q", table)
	}
	ttl := config.DefaultTTL
	if ttl.IsDefault() {
		ttl = minimalkv.NotSet
	}
	s := &Store{session: session, table: table, defaultTTL: ttl}
	if config.CreateIfMissing {
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (key text PRIMARY KEY, value blob)", table)
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return nil, minimalkv.NewBackendFailure("", err)
		}
	}
	return s, nil
}

// Delete removes the row at key; Cassandra deletes are no-ops for absent keys.
func (s *Store) Delete(ctx context.Context, key string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.table)
	if err := s.session.Query(stmt, key).WithContext(ctx).Exec(); err != nil {
		return minimalkv.NewBackendFailure(key, err)
	}
	return nil
}

// Open returns a reader over the row's value.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

// PutReader drains r and stores it with the store's default TTL.
func (s *Store) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	return s.PutReaderTTL(ctx, key, r, minimalkv.UseDefault)
}

// IterKeys scans the whole table lazily; Cassandra cannot range over text
// partition keys, so prefix restriction happens client-side.
func (s *Store) IterKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stmt := fmt.Sprintf("SELECT key FROM %s", s.table)
		it := s.session.Query(stmt).WithContext(ctx).Iter()
		var key string
		for it.Scan(&key) {
			if prefix != "" && !strings.HasPrefix(key, prefix) {
				continue
			}
			if !yield(key, nil) {
				it.Close()
				return
			}
		}
		if err := it.Close(); err != nil {
			yield("", minimalkv.NewBackendFailure("", err))
		}
	}
}

// Close closes the session when this store opened it.
func (s *Store) Close() error {
	if s.owned {
		s.session.Close()
	}
	return nil
}

// Get fetches the row's value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	stmt := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", s.table)
	var value []byte
	if err := s.session.Query(stmt, key).WithContext(ctx).Scan(&value); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
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

// HasKey probes for the row without fetching the blob.
func (s *Store) HasKey(ctx context.Context, key string) (bool, error) {
	stmt := fmt.Sprintf("SELECT key FROM %s WHERE key = ?", s.table)
	var found string
	if err := s.session.Query(stmt, key).WithContext(ctx).Scan(&found); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return false, nil
		}
		return false, minimalkv.NewBackendFailure(key, err)
	}
	return true, nil
}

// PutTTL stores value at key; finite TTLs round up to whole seconds for
// USING TTL, NotSet and Forever insert without one.
func (s *Store) PutTTL(ctx context.Context, key string, value []byte, ttl minimalkv.TTL) (string, error) {
	if err := ttl.Validate(); err != nil {
		return "", err
	}
	ttl = ttl.Resolve(s.defaultTTL)
	if expiry, finite := ttl.Expiry(); finite {
		secs := int64((expiry + time.Second - 1) / time.Second)
		stmt := fmt.Sprintf("INSERT INTO %s (key, value) VALUES (?, ?) USING TTL ?", s.table)
		if err := s.session.Query(stmt, key, value, secs).WithContext(ctx).Exec(); err != nil {
			return "", minimalkv.NewBackendFailure(key, err)
		}
		return key, nil
	}
	stmt := fmt.Sprintf("INSERT INTO %s (key, value) VALUES (?, ?)", s.table)
	if err := s.session.Query(stmt, key, value).WithContext(ctx).Exec(); err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	return key, nil
}

// PutReaderTTL drains r and delegates to PutTTL.
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
