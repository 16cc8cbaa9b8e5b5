package minimalkv

import (
	"bytes"
	"context"
	"io"
	"iter"
	"os"
	"strings"
)

// The functions in this file derive the composite store operations from the
// four-method Store contract. They work for any backend; backends opt into
// faster paths by additionally implementing Getter, Putter, or KeyChecker.
// Every keyed operation validates the key first, using the store's own
// character set when it provides one.

// Get returns the value at key as a byte slice.
func Get(ctx context.Context, s Store, key string) ([]byte, error) {
	if err := ValidatorFor(s)(key); err != nil {
		return nil, err
	}
	if g, ok := s.(Getter); ok {
		return g.Get(ctx, key)
	}
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, NewBackendFailure(key, err)
	}
	return data, nil
}

// Put stores value at key and returns the key under which it was stored.
func Put(ctx context.Context, s Store, key string, value []byte) (string, error) {
	if err := ValidatorFor(s)(key); err != nil {
		return "", err
	}
	if p, ok := s.(Putter); ok {
		return p.Put(ctx, key, value)
	}
	return s.PutReader(ctx, key, bytes.NewReader(value))
}

// GetFile streams the value at key into the file at filename, without
// buffering the whole value in memory. An existing file is truncated.
func GetFile(ctx context.Context, s Store, key, filename string) error {
	if err := ValidatorFor(s)(key); err != nil {
		return err
	}
	rc, err := s.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	f, err := os.Create(filename)
	if err != nil {
		return NewBackendFailure(key, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return NewBackendFailure(key, err)
	}
	if err := f.Close(); err != nil {
		return NewBackendFailure(key, err)
	}
	return nil
}

// PutFile streams the content of the file at filename into key.
func PutFile(ctx context.Context, s Store, key, filename string) (string, error) {
	if err := ValidatorFor(s)(key); err != nil {
		return "", err
	}
	f, err := os.Open(filename)
	if err != nil {
		return "", NewBackendFailure(key, err)
	}
	defer f.Close()
	return s.PutReader(ctx, key, f)
}

// Keys eagerly materializes the store's keys, optionally restricted to those
// starting with prefix.
func Keys(ctx context.Context, s Store, prefix string) ([]string, error) {
	var keys []string
	for k, err := range s.IterKeys(ctx, prefix) {
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// HasKey reports whether the store holds a value at key. Backends without a
// native existence probe are checked by attempting Open.
func HasKey(ctx context.Context, s Store, key string) (bool, error) {
	if err := ValidatorFor(s)(key); err != nil {
		return false, err
	}
	if c, ok := s.(KeyChecker); ok {
		return c.HasKey(ctx, key)
	}
	rc, err := s.Open(ctx, key)
	if err != nil {
		if IsKeyNotFound(err) {
			return false, nil
		}
		return false, err
	}
	rc.Close()
	return true, nil
}

// Copy duplicates the value at source under dest using the store's native
// copy capability, failing with an UnsupportedCapability error when the
// store has none.
func Copy(ctx context.Context, s Store, source, dest string) (string, error) {
	validate := ValidatorFor(s)
	if err := validate(source); err != nil {
		return "", err
	}
	if err := validate(dest); err != nil {
		return "", err
	}
	c, ok := s.(Copier)
	if !ok {
		return "", &Error{Code: UnsupportedCapability, Err: errorString("store does not support copy")}
	}
	return c.Copy(ctx, source, dest)
}

// URLFor returns a location-addressable reference to the value at key,
// failing with an UnsupportedCapability error when the store has none.
func URLFor(ctx context.Context, s Store, key string) (string, error) {
	if err := ValidatorFor(s)(key); err != nil {
		return "", err
	}
	u, ok := s.(URLer)
	if !ok {
		return "", &Error{Code: UnsupportedCapability, Key: key, Err: errorString("store does not support url generation")}
	}
	return u.URLFor(ctx, key)
}

// PutTTL stores value at key with the given time-to-live. Stores without the
// TTL capability accept UseDefault and NotSet (plain put) and reject
// anything else with an UnsupportedCapability error.
func PutTTL(ctx context.Context, s Store, key string, value []byte, ttl TTL) (string, error) {
	if err := ValidatorFor(s)(key); err != nil {
		return "", err
	}
	if err := ttl.Validate(); err != nil {
		return "", err
	}
	if t, ok := s.(TTLStore); ok {
		return t.PutTTL(ctx, key, value, ttl)
	}
	if err := requireNoTTL(key, ttl); err != nil {
		return "", err
	}
	if p, ok := s.(Putter); ok {
		return p.Put(ctx, key, value)
	}
	return s.PutReader(ctx, key, bytes.NewReader(value))
}

// PutReaderTTL is PutTTL for streamed content.
func PutReaderTTL(ctx context.Context, s Store, key string, r io.Reader, ttl TTL) (string, error) {
	if err := ValidatorFor(s)(key); err != nil {
		return "", err
	}
	if err := ttl.Validate(); err != nil {
		return "", err
	}
	if t, ok := s.(TTLStore); ok {
		return t.PutReaderTTL(ctx, key, r, ttl)
	}
	if err := requireNoTTL(key, ttl); err != nil {
		return "", err
	}
	return s.PutReader(ctx, key, r)
}

func requireNoTTL(key string, ttl TTL) error {
	if ttl.IsDefault() || ttl.IsNotSet() {
		return nil
	}
	return &Error{Code: UnsupportedCapability, Key: key, Err: errorString("store does not support time-to-live")}
}

// IterPrefixes yields the unique key prefixes up to the first occurrence of
// delimiter after prefix, in the manner of a directory listing over a flat
// keyspace.
func IterPrefixes(ctx context.Context, s Store, delimiter, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		seen := make(map[string]struct{})
		plen := len(prefix)
		for k, err := range s.IterKeys(ctx, prefix) {
			if err != nil {
				yield("", err)
				return
			}
			if pos := strings.Index(k[plen:], delimiter); pos >= 0 {
				k = k[:plen+pos+len(delimiter)]
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			if !yield(k, nil) {
				return
			}
		}
	}
}
