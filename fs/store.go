// Package fs stores each value as a file under a common root directory.
// With the extended keyspace, forward slashes in keys map to subdirectories.
package fs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	retry "github.com/sethvargo/go-retry"

	"github.com/data-engineering-collective/minimalkv"
)

// Store writes values as plain files below Root. Writes are atomic: content
// lands in a temporary file that is renamed into place, so readers never
// observe partial values.
type Store struct {
	root string
	perm os.FileMode
}

// Option configures a Store.
type Option func(*Store)

// WithPermissions sets the file mode applied to stored values. The default
// leaves the process umask in charge.
func WithPermissions(perm os.FileMode) Option {
	return func(s *Store) { s.perm = perm }
}

// New returns a store rooted at dir. The directory must exist; the factory's
// create_if_missing option creates it beforehand.
func New(dir string, opts ...Option) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, minimalkv.NewBackendFailure("", err)
	}
	if !info.IsDir() {
		return nil, minimalkv.NewConfigParse("fs store root %q is not a directory", dir)
	}
	s := &Store{root: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

// filename maps a key to its absolute path, refusing paths that escape the
// root (a dot-only key like ".." is syntactically valid but unsafe here).
func (s *Store) filename(key string) (string, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	full := filepath.Join(root, filepath.FromSlash(key))
	if full != root && !strings.HasPrefix(full, root+string(os.PathSeparator)) {
		return "", &minimalkv.Error{Code: minimalkv.InvalidKey, Key: key, Err: errors.New("key escapes the store root")}
	}
	return full, nil
}

// Delete removes the file at key and prunes directories it leaves empty.
// Deleting an absent key is a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	target, err := s.filename(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return minimalkv.NewBackendFailure(key, err)
	}
	s.removeEmptyParents(target)
	return nil
}

// removeEmptyParents deletes now-empty directories between the removed file
// and the root, so extended-keyspace subtrees do not accumulate.
func (s *Store) removeEmptyParents(target string) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return
	}
	for dir := filepath.Dir(target); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			return
		}
	}
}

// Open returns a read handle on the file at key.
func (s *Store) Open(_ context.Context, key string) (io.ReadCloser, error) {
	target, err := s.filename(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, minimalkv.NewKeyNotFound(key)
		}
		return nil, minimalkv.NewBackendFailure(key, err)
	}
	return f, nil
}

// PutReader streams r into a temporary file and atomically renames it over
// the target. Transient I/O failures are retried with backoff.
func (s *Store) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	target, err := s.filename(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	if err := s.write(ctx, target, r); err != nil {
		return "", minimalkv.NewBackendFailure(key, err)
	}
	if s.perm != 0 {
		if err := os.Chmod(target, s.perm); err != nil {
			return "", minimalkv.NewBackendFailure(key, err)
		}
	}
	return key, nil
}

func (s *Store) write(ctx context.Context, target string, r io.Reader) error {
	// Only the first attempt consumes r; retries re-run against the
	// buffered temporary when the source supports seeking, otherwise the
	// write is not repeatable and the error is surfaced as-is.
	rs, seekable := r.(io.ReadSeeker)
	if !seekable {
		return atomic.WriteFile(target, r)
	}
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return atomic.WriteFile(target, r)
	}
	return minimalkv.Retry(ctx, func(context.Context) error {
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return err
		}
		if err := atomic.WriteFile(target, rs); err != nil {
			if minimalkv.ShouldRetry(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	}, nil)
}

// IterKeys walks the tree below the root, yielding relative slash-separated
// paths as keys.
func (s *Store) IterKeys(_ context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		root, err := filepath.Abs(s.root)
		if err != nil {
			yield("", minimalkv.NewBackendFailure("", err))
			return
		}
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			key := filepath.ToSlash(rel)
			if !strings.HasPrefix(key, prefix) {
				return nil
			}
			if !yield(key, nil) {
				return fs.SkipAll
			}
			return nil
		})
		if walkErr != nil {
			yield("", minimalkv.NewBackendFailure("", walkErr))
		}
	}
}

// Close is a no-op; file handles are scoped to each operation.
func (s *Store) Close() error {
	return nil
}

// HasKey checks for the file without opening it.
func (s *Store) HasKey(_ context.Context, key string) (bool, error) {
	target, err := s.filename(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, minimalkv.NewBackendFailure(key, err)
	}
	return true, nil
}

// Copy duplicates the file at source under dest.
func (s *Store) Copy(ctx context.Context, source, dest string) (string, error) {
	src, err := s.Open(ctx, source)
	if err != nil {
		return "", err
	}
	defer src.Close()
	return s.PutReader(ctx, dest, src)
}

// URLFor returns a file:// URL pointing at the value's backing file.
func (s *Store) URLFor(_ context.Context, key string) (string, error) {
	target, err := s.filename(key)
	if err != nil {
		return "", err
	}
	parts := strings.Split(filepath.ToSlash(target), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "file://" + strings.Join(parts, "/"), nil
}

var (
	_ minimalkv.Store      = (*Store)(nil)
	_ minimalkv.KeyChecker = (*Store)(nil)
	_ minimalkv.Copier     = (*Store)(nil)
	_ minimalkv.URLer      = (*Store)(nil)
)
