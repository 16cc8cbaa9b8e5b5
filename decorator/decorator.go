// Package decorator composes cross-cutting behaviors onto any store without
// the backend changing: read-only guarding, key prefixing, key encoding, id
// generation, TTL defaulting, and the extended keyspace.
//
// Every decorator owns exactly one inner store, implements the full store
// surface plus capability pass-throughs, and transforms arguments, results,
// and errors only at its own boundary, so decorators compose in any order.
package decorator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"

	"github.com/data-engineering-collective/minimalkv"
)

// Base forwards the whole store surface to the wrapped store. Concrete
// decorators embed it and override the calls they care about.
//
// Capability methods forward when the inner store provides the capability
// and fail with an UnsupportedCapability error otherwise; probing with
// minimalkv.SupportsCopy and friends walks through Base via Inner, so a
// wrapper never makes a capability appear out of thin air.
type Base struct {
	// Store is the wrapped store; the decorator owns it exclusively.
	Store minimalkv.Store
}

// Inner returns the wrapped store.
func (b *Base) Inner() minimalkv.Store { return b.Store }

func (b *Base) Delete(ctx context.Context, key string) error {
	return b.Store.Delete(ctx, key)
}

func (b *Base) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return b.Store.Open(ctx, key)
}

func (b *Base) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	return b.Store.PutReader(ctx, key, r)
}

func (b *Base) IterKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return b.Store.IterKeys(ctx, prefix)
}

// Close relays the close call to the wrapped store.
func (b *Base) Close() error {
	return b.Store.Close()
}

// ValidateKey applies the wrapped store's key character set.
func (b *Base) ValidateKey(key string) error {
	return minimalkv.ValidatorFor(b.Store)(key)
}

// Copy forwards the copy capability.
func (b *Base) Copy(ctx context.Context, source, dest string) (string, error) {
	if c, ok := b.Store.(minimalkv.Copier); ok {
		return c.Copy(ctx, source, dest)
	}
	return "", unsupported("copy", source)
}

// URLFor forwards the URL capability.
func (b *Base) URLFor(ctx context.Context, key string) (string, error) {
	if u, ok := b.Store.(minimalkv.URLer); ok {
		return u.URLFor(ctx, key)
	}
	return "", unsupported("url generation", key)
}

// PutTTL forwards the TTL capability; without it, only UseDefault and
// NotSet degrade to a plain put.
func (b *Base) PutTTL(ctx context.Context, key string, value []byte, ttl minimalkv.TTL) (string, error) {
	if t, ok := b.Store.(minimalkv.TTLStore); ok {
		return t.PutTTL(ctx, key, value, ttl)
	}
	if !ttl.IsDefault() && !ttl.IsNotSet() {
		return "", unsupported("time-to-live", key)
	}
	return putBytes(ctx, b.Store, key, value)
}

// PutReaderTTL forwards the TTL capability for streamed content.
func (b *Base) PutReaderTTL(ctx context.Context, key string, r io.Reader, ttl minimalkv.TTL) (string, error) {
	if t, ok := b.Store.(minimalkv.TTLStore); ok {
		return t.PutReaderTTL(ctx, key, r, ttl)
	}
	if !ttl.IsDefault() && !ttl.IsNotSet() {
		return "", unsupported("time-to-live", key)
	}
	return b.Store.PutReader(ctx, key, r)
}

// DefaultTTL reports the wrapped store's default, or NotSet without the
// capability.
func (b *Base) DefaultTTL() minimalkv.TTL {
	if t, ok := b.Store.(minimalkv.TTLStore); ok {
		return t.DefaultTTL()
	}
	return minimalkv.NotSet
}

func unsupported(what, key string) error {
	return &minimalkv.Error{
		Code: minimalkv.UnsupportedCapability,
		Key:  key,
		Err:  errString("store does not support " + what),
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func asError(err error, target **minimalkv.Error) bool { return errors.As(err, target) }

// putBytes stores a byte slice through the store's fast path when it has one.
func putBytes(ctx context.Context, s minimalkv.Store, key string, value []byte) (string, error) {
	if p, ok := s.(minimalkv.Putter); ok {
		return p.Put(ctx, key, value)
	}
	return s.PutReader(ctx, key, bytes.NewReader(value))
}

var (
	_ minimalkv.Store    = (*Base)(nil)
	_ minimalkv.Wrapper  = (*Base)(nil)
	_ minimalkv.Copier   = (*Base)(nil)
	_ minimalkv.URLer    = (*Base)(nil)
	_ minimalkv.TTLStore = (*Base)(nil)
)
