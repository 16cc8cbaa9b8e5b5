package decorator

import (
	"context"
	"io"
	"iter"
	"strings"

	"github.com/data-engineering-collective/minimalkv"
)

// Prefix exposes the subset of the inner store whose keys start with a fixed
// prefix. Callers see keys without the prefix; the inner store sees them
// with it, so several Prefix stores can share one backend without clashing.
type Prefix struct {
	Base
	prefix string
}

// NewPrefix returns a view of store under prefix.
func NewPrefix(store minimalkv.Store, prefix string) *Prefix {
	return &Prefix{Base: Base{Store: store}, prefix: prefix}
}

func (p *Prefix) mapKey(key string) string { return p.prefix + key }

func (p *Prefix) Delete(ctx context.Context, key string) error {
	return p.Store.Delete(ctx, p.mapKey(key))
}

func (p *Prefix) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := p.Store.Open(ctx, p.mapKey(key))
	if err != nil {
		return nil, p.unmapErr(err)
	}
	return rc, nil
}

func (p *Prefix) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	inner, err := p.Store.PutReader(ctx, p.mapKey(key), r)
	if err != nil {
		return "", p.unmapErr(err)
	}
	return strings.TrimPrefix(inner, p.prefix), nil
}

// IterKeys narrows the inner enumeration to the prefixed subset and strips
// the prefix from every yielded key.
func (p *Prefix) IterKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for key, err := range p.Store.IterKeys(ctx, p.prefix+prefix) {
			if err != nil {
				yield("", p.unmapErr(err))
				return
			}
			stripped, ok := strings.CutPrefix(key, p.prefix)
			if !ok {
				continue
			}
			if !yield(stripped, nil) {
				return
			}
		}
	}
}

// Get uses the inner store's fast path when it has one.
func (p *Prefix) Get(ctx context.Context, key string) ([]byte, error) {
	if g, ok := p.Store.(minimalkv.Getter); ok {
		value, err := g.Get(ctx, p.mapKey(key))
		if err != nil {
			return nil, p.unmapErr(err)
		}
		return value, nil
	}
	rc, err := p.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// HasKey probes through the inner store's fast path when it has one.
func (p *Prefix) HasKey(ctx context.Context, key string) (bool, error) {
	if c, ok := p.Store.(minimalkv.KeyChecker); ok {
		return c.HasKey(ctx, p.mapKey(key))
	}
	rc, err := p.Store.Open(ctx, p.mapKey(key))
	if err != nil {
		if minimalkv.IsKeyNotFound(err) {
			return false, nil
		}
		return false, p.unmapErr(err)
	}
	rc.Close()
	return true, nil
}

func (p *Prefix) Copy(ctx context.Context, source, dest string) (string, error) {
	inner, err := p.Base.Copy(ctx, p.mapKey(source), p.mapKey(dest))
	if err != nil {
		return "", p.unmapErr(err)
	}
	return strings.TrimPrefix(inner, p.prefix), nil
}

func (p *Prefix) URLFor(ctx context.Context, key string) (string, error) {
	return p.Base.URLFor(ctx, p.mapKey(key))
}

func (p *Prefix) PutTTL(ctx context.Context, key string, value []byte, ttl minimalkv.TTL) (string, error) {
	inner, err := p.Base.PutTTL(ctx, p.mapKey(key), value, ttl)
	if err != nil {
		return "", p.unmapErr(err)
	}
	return strings.TrimPrefix(inner, p.prefix), nil
}

func (p *Prefix) PutReaderTTL(ctx context.Context, key string, r io.Reader, ttl minimalkv.TTL) (string, error) {
	inner, err := p.Base.PutReaderTTL(ctx, p.mapKey(key), r, ttl)
	if err != nil {
		return "", p.unmapErr(err)
	}
	return strings.TrimPrefix(inner, p.prefix), nil
}

// unmapErr rewrites the inner key inside structured errors back to the
// caller's view.
func (p *Prefix) unmapErr(err error) error {
	var se *minimalkv.Error
	if asError(err, &se) && strings.HasPrefix(se.Key, p.prefix) {
		return &minimalkv.Error{Code: se.Code, Key: strings.TrimPrefix(se.Key, p.prefix), Err: se.Err}
	}
	return err
}

var (
	_ minimalkv.Store      = (*Prefix)(nil)
	_ minimalkv.Getter     = (*Prefix)(nil)
	_ minimalkv.KeyChecker = (*Prefix)(nil)
)
