package decorator

import (
	"context"
	"io"
	"time"

	"github.com/data-engineering-collective/minimalkv"
)

// TTLDefault overrides the inner store's default expiry: writes that leave
// the TTL unspecified expire after the configured duration instead.
type TTLDefault struct {
	Base
	ttl minimalkv.TTL
}

// NewTTLDefault wraps store with d as the default expiry for plain writes.
// The inner store must support per-key TTLs.
func NewTTLDefault(store minimalkv.Store, d time.Duration) (*TTLDefault, error) {
	if !minimalkv.SupportsTTL(store) {
		return nil, unsupported("time-to-live", "")
	}
	return &TTLDefault{Base: Base{Store: store}, ttl: minimalkv.Expires(d)}, nil
}

// PutReader applies the configured default to plain writes.
func (t *TTLDefault) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	return t.Base.PutReaderTTL(ctx, key, r, t.ttl)
}

func (t *TTLDefault) PutTTL(ctx context.Context, key string, value []byte, ttl minimalkv.TTL) (string, error) {
	if err := ttl.Validate(); err != nil {
		return "", err
	}
	return t.Base.PutTTL(ctx, key, value, ttl.Resolve(t.ttl))
}

func (t *TTLDefault) PutReaderTTL(ctx context.Context, key string, r io.Reader, ttl minimalkv.TTL) (string, error) {
	if err := ttl.Validate(); err != nil {
		return "", err
	}
	return t.Base.PutReaderTTL(ctx, key, r, ttl.Resolve(t.ttl))
}

// DefaultTTL reports the configured default.
func (t *TTLDefault) DefaultTTL() minimalkv.TTL {
	return t.ttl
}

var _ minimalkv.TTLStore = (*TTLDefault)(nil)
