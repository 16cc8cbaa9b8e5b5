package decorator

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/data-engineering-collective/minimalkv"
)

// HashID generates content-addressed keys: storing under the empty key
// derives the key from a hash of the value, so identical content always
// lands under the same key. Non-empty keys pass through unchanged.
type HashID struct {
	Base
	newHash func() hash.Hash
}

// HashOption configures a HashID decorator.
type HashOption func(*HashID)

// WithHash replaces the default SHA-1 content hash.
func WithHash(newHash func() hash.Hash) HashOption {
	return func(h *HashID) { h.newHash = newHash }
}

// NewHashID wraps store with content-hash key generation.
func NewHashID(store minimalkv.Store, opts ...HashOption) *HashID {
	h := &HashID{Base: Base{Store: store}, newHash: sha1.New}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ValidateKey accepts the empty key as a request to generate one.
func (h *HashID) ValidateKey(key string) error {
	if key == "" {
		return nil
	}
	return h.Base.ValidateKey(key)
}

// Put hashes the value when no key was given.
func (h *HashID) Put(ctx context.Context, key string, value []byte) (string, error) {
	if key == "" {
		key = h.hashKey(value)
	}
	return putBytes(ctx, h.Store, key, value)
}

// PutReader spools the stream to a temporary file while hashing it, since
// the key must be known before the inner store sees the first byte.
func (h *HashID) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	if key != "" {
		return h.Store.PutReader(ctx, key, r)
	}
	key, spooled, cleanup, err := h.spool(r)
	if err != nil {
		return "", err
	}
	defer cleanup()
	return h.Store.PutReader(ctx, key, spooled)
}

// PutTTL generates the content hash before handing the write to the TTL
// path, so an empty key never reaches the inner store.
func (h *HashID) PutTTL(ctx context.Context, key string, value []byte, ttl minimalkv.TTL) (string, error) {
	if key == "" {
		key = h.hashKey(value)
	}
	return h.Base.PutTTL(ctx, key, value, ttl)
}

// PutReaderTTL spools and hashes like PutReader before the TTL write.
func (h *HashID) PutReaderTTL(ctx context.Context, key string, r io.Reader, ttl minimalkv.TTL) (string, error) {
	if key == "" {
		var cleanup func()
		var err error
		key, r, cleanup, err = h.spool(r)
		if err != nil {
			return "", err
		}
		defer cleanup()
	}
	return h.Base.PutReaderTTL(ctx, key, r, ttl)
}

func (h *HashID) hashKey(value []byte) string {
	digest := h.newHash()
	digest.Write(value)
	return hex.EncodeToString(digest.Sum(nil))
}

// spool copies the stream to a temporary file while hashing it and returns
// the derived key plus a rewound reader over the content. The caller runs
// cleanup once the reader has been consumed.
func (h *HashID) spool(r io.Reader) (string, io.Reader, func(), error) {
	tmp, err := os.CreateTemp("", "minimalkv-hash-*")
	if err != nil {
		return "", nil, nil, minimalkv.NewBackendFailure("", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	digest := h.newHash()
	if _, err := io.Copy(io.MultiWriter(tmp, digest), r); err != nil {
		cleanup()
		return "", nil, nil, minimalkv.NewBackendFailure("", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return "", nil, nil, minimalkv.NewBackendFailure("", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), tmp, cleanup, nil
}

// UUID generates random keys: storing under the empty key assigns a fresh
// UUIDv4. Non-empty keys pass through unchanged.
type UUID struct {
	Base
}

// NewUUID wraps store with random key generation.
func NewUUID(store minimalkv.Store) *UUID {
	return &UUID{Base{Store: store}}
}

// ValidateKey accepts the empty key as a request to generate one.
func (u *UUID) ValidateKey(key string) error {
	if key == "" {
		return nil
	}
	return u.Base.ValidateKey(key)
}

func (u *UUID) Put(ctx context.Context, key string, value []byte) (string, error) {
	if key == "" {
		key = uuid.NewString()
	}
	return putBytes(ctx, u.Store, key, value)
}

func (u *UUID) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	if key == "" {
		key = uuid.NewString()
	}
	return u.Store.PutReader(ctx, key, r)
}

// PutTTL assigns a fresh key before handing the write to the TTL path, so
// an empty key never reaches the inner store.
func (u *UUID) PutTTL(ctx context.Context, key string, value []byte, ttl minimalkv.TTL) (string, error) {
	if key == "" {
		key = uuid.NewString()
	}
	return u.Base.PutTTL(ctx, key, value, ttl)
}

func (u *UUID) PutReaderTTL(ctx context.Context, key string, r io.Reader, ttl minimalkv.TTL) (string, error) {
	if key == "" {
		key = uuid.NewString()
	}
	return u.Base.PutReaderTTL(ctx, key, r, ttl)
}

var (
	_ minimalkv.Store  = (*HashID)(nil)
	_ minimalkv.Putter = (*HashID)(nil)
	_ minimalkv.Store  = (*UUID)(nil)
	_ minimalkv.Putter = (*UUID)(nil)
)
