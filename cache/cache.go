// Package cache pairs a fast store with an authoritative backing store.
// Reads are served from the fast store when possible and populated on miss;
// writes go to the backing store and invalidate the fast copy. The fast
// store is strictly best-effort: its failures degrade to backing-store
// operations instead of surfacing to the caller.
package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/data-engineering-collective/minimalkv"
)

// Cache is a read-through, invalidate-on-write store composition.
type Cache struct {
	fast    minimalkv.Store
	backing minimalkv.Store
}

// New composes fast over backing.
func New(fast, backing minimalkv.Store) *Cache {
	return &Cache{fast: fast, backing: backing}
}

// Inner returns the backing store; capability probes and validation follow
// the authoritative side of the composition.
func (c *Cache) Inner() minimalkv.Store { return c.backing }

// ValidateKey applies the backing store's key character set.
func (c *Cache) ValidateKey(key string) error {
	return minimalkv.ValidatorFor(c.backing)(key)
}

// Delete removes the key from the backing store, then drops the fast copy.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.backing.Delete(ctx, key); err != nil {
		return err
	}
	c.invalidate(ctx, key)
	return nil
}

// Open serves from the fast store, populating it from the backing store on
// a miss. When populating fails the read falls back to the backing store.
func (c *Cache) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := c.fast.Open(ctx, key)
	if err == nil {
		return rc, nil
	}
	if !minimalkv.IsKeyNotFound(err) {
		slog.Warn("cache read failed, bypassing", "key", key, "error", err)
		return c.backing.Open(ctx, key)
	}
	src, err := c.backing.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	if _, perr := c.fast.PutReader(ctx, key, src); perr != nil {
		src.Close()
		slog.Warn("cache populate failed, bypassing", "key", key, "error", perr)
		return c.backing.Open(ctx, key)
	}
	src.Close()
	return c.fast.Open(ctx, key)
}

// Get serves from the fast store's fast path when it has one.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	fg, ok := c.fast.(minimalkv.Getter)
	if !ok {
		rc, err := c.Open(ctx, key)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	value, err := fg.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !minimalkv.IsKeyNotFound(err) {
		slog.Warn("cache read failed, bypassing", "key", key, "error", err)
		return minimalkv.Get(ctx, c.backing, key)
	}
	value, err = minimalkv.Get(ctx, c.backing, key)
	if err != nil {
		return nil, err
	}
	if _, perr := c.fast.PutReader(ctx, key, bytes.NewReader(value)); perr != nil {
		slog.Warn("cache populate failed", "key", key, "error", perr)
	}
	return value, nil
}

// PutReader writes to the backing store and invalidates the fast copy, so a
// later read repopulates from the authoritative content.
func (c *Cache) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	stored, err := c.backing.PutReader(ctx, key, r)
	if err != nil {
		return "", err
	}
	c.invalidate(ctx, stored)
	return stored, nil
}

// IterKeys enumerates the backing store; the fast store may hold a subset.
func (c *Cache) IterKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return c.backing.IterKeys(ctx, prefix)
}

// HasKey asks the backing store; the fast store's view is incomplete.
func (c *Cache) HasKey(ctx context.Context, key string) (bool, error) {
	return minimalkv.HasKey(ctx, c.backing, key)
}

// Copy forwards to the backing store and invalidates the destination.
func (c *Cache) Copy(ctx context.Context, source, dest string) (string, error) {
	cp, ok := c.backing.(minimalkv.Copier)
	if !ok {
		return "", &minimalkv.Error{
			Code: minimalkv.UnsupportedCapability,
			Key:  source,
			Err:  errors.New("store does not support copy"),
		}
	}
	stored, err := cp.Copy(ctx, source, dest)
	if err != nil {
		return "", err
	}
	c.invalidate(ctx, stored)
	return stored, nil
}

// URLFor forwards to the backing store, which owns the key's canonical
// location.
func (c *Cache) URLFor(ctx context.Context, key string) (string, error) {
	u, ok := c.backing.(minimalkv.URLer)
	if !ok {
		return "", &minimalkv.Error{
			Code: minimalkv.UnsupportedCapability,
			Key:  key,
			Err:  errors.New("store does not support url generation"),
		}
	}
	return u.URLFor(ctx, key)
}

// PutTTL writes to the backing store with the given expiry and invalidates
// the fast copy, which would otherwise outlive it.
func (c *Cache) PutTTL(ctx context.Context, key string, value []byte, ttl minimalkv.TTL) (string, error) {
	stored, err := minimalkv.PutTTL(ctx, c.backing, key, value, ttl)
	if err != nil {
		return "", err
	}
	c.invalidate(ctx, stored)
	return stored, nil
}

// PutReaderTTL writes the stream to the backing store with the given expiry
// and invalidates the fast copy.
func (c *Cache) PutReaderTTL(ctx context.Context, key string, r io.Reader, ttl minimalkv.TTL) (string, error) {
	stored, err := minimalkv.PutReaderTTL(ctx, c.backing, key, r, ttl)
	if err != nil {
		return "", err
	}
	c.invalidate(ctx, stored)
	return stored, nil
}

// DefaultTTL reports the backing store's default.
func (c *Cache) DefaultTTL() minimalkv.TTL {
	if t, ok := c.backing.(minimalkv.TTLStore); ok {
		return t.DefaultTTL()
	}
	return minimalkv.NotSet
}

// Close closes both stores, reporting every failure.
func (c *Cache) Close() error {
	return errors.Join(c.fast.Close(), c.backing.Close())
}

// invalidate drops the fast copy; failures are logged and swallowed because
// the backing store already holds the authoritative state.
func (c *Cache) invalidate(ctx context.Context, key string) {
	if err := c.fast.Delete(ctx, key); err != nil {
		slog.Warn("cache invalidate failed", "key", key, "error", err)
	}
}

var (
	_ minimalkv.Store      = (*Cache)(nil)
	_ minimalkv.Wrapper    = (*Cache)(nil)
	_ minimalkv.Getter     = (*Cache)(nil)
	_ minimalkv.KeyChecker = (*Cache)(nil)
	_ minimalkv.Copier     = (*Cache)(nil)
	_ minimalkv.URLer      = (*Cache)(nil)
	_ minimalkv.TTLStore   = (*Cache)(nil)
)
