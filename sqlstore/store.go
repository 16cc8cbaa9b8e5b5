// Package sqlstore backs the store contract with a relational table of
// (key, value) rows through database/sql. The SQL sticks to portable
// placeholder syntax; OpenSQLite wires the bundled sqlite3 driver.
package sqlstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"

	// Registers the "sqlite3" driver used by OpenSQLite.
	_ "github.com/mattn/go-sqlite3"

	"github.com/data-engineering-collective/minimalkv"
)

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store adapts one table of a SQL database to the store contract.
type Store struct {
	db    *sql.DB
	table string
	owned bool
}

// New wraps an existing database handle, creating the value table if absent.
// The caller keeps ownership of db.
func New(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	if table == "" {
		table = "minimalkv"
	}
	if !identRe.MatchString(table) {
		return nil, minimalkv.NewConfigParse("invalid table name %q", table)
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (key VARCHAR(250) PRIMARY KEY, value BLOB NOT NULL)", table)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, minimalkv.NewBackendFailure("", err)
	}
	return &Store{db: db, table: table}, nil
}

// OpenSQLite opens (or creates) a SQLite database file and returns a store
// owning the handle.
func OpenSQLite(ctx context.Context, path, table string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, minimalkv.NewBackendFailure("", err)
	}
	s, err := New(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// Delete removes the row at key; absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key); err != nil {
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

// PutReader drains r and delegates to Put.
func (s *Store) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	value, err := io.ReadAll(r)
	if err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	return s.Put(ctx, key, value)
}

// IterKeys streams keys from a LIKE query, escaping pattern metacharacters
// in the prefix.
func (s *Store) IterKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stmt := fmt.Sprintf("SELECT key FROM %s WHERE key LIKE ? ESCAPE '\\' ORDER BY key", s.table)
		rows, err := s.db.QueryContext(ctx, stmt, escapeLike(prefix)+"%")
		if err != nil {
			yield("", minimalkv.NewBackendFailure("", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				yield("", minimalkv.NewBackendFailure("", err))
				return
			}
			if !yield(key, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield("", minimalkv.NewBackendFailure("", err))
		}
	}
}

func escapeLike(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix)
}

// Close closes the handle when this store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Get fetches the row's value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	stmt := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", s.table)
	var value []byte
	if err := s.db.QueryRowContext(ctx, stmt, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, minimalkv.NewKeyNotFound(key)
		}
		return nil, minimalkv.NewBackendFailure(key, err)
	}
	return value, nil
}

// Put upserts as delete-then-insert inside one transaction, which stays
// portable across SQL dialects.
func (s *Store) Put(ctx context.Context, key string, value []byte) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	del := fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.table)
	if _, err := tx.ExecContext(ctx, del, key); err != nil {
		tx.Rollback()
		return "", minimalkv.NewBackendFailure(key, err)
	}
	ins := fmt.Sprintf("INSERT INTO %s (key, value) VALUES (?, ?)", s.table)
	if _, err := tx.ExecContext(ctx, ins, key, value); err != nil {
		tx.Rollback()
		return "", minimalkv.NewBackendFailure(key, err)
	}
	if err := tx.Commit(); err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	return key, nil
}

// HasKey probes for the row without fetching the blob.
func (s *Store) HasKey(ctx context.Context, key string) (bool, error) {
	stmt := fmt.Sprintf("SELECT 1 FROM %s WHERE key = ?", s.table)
	var one int
	if err := s.db.QueryRowContext(ctx, stmt, key).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, minimalkv.NewBackendFailure(key, err)
	}
	return true, nil
}

var (
	_ minimalkv.Store      = (*Store)(nil)
	_ minimalkv.Getter     = (*Store)(nil)
	_ minimalkv.Putter     = (*Store)(nil)
	_ minimalkv.KeyChecker = (*Store)(nil)
)
