package decorator

import (
	"context"
	"io"
	"iter"
	"net/url"

	"github.com/data-engineering-collective/minimalkv"
)

// URLEncode percent-encodes keys before they reach the inner store, which
// lets callers use arbitrary strings as keys on backends with a restricted
// character set. Encoding is bijective, so decoding yielded keys restores
// the caller's originals.
type URLEncode struct {
	Base
}

// NewURLEncode wraps store with percent-encoded keys.
func NewURLEncode(store minimalkv.Store) *URLEncode {
	return &URLEncode{Base{Store: store}}
}

func encodeKey(key string) string { return url.QueryEscape(key) }

// ValidateKey checks the encoded form against the inner store, since that is
// the key the backend actually sees. The caller-side key itself is free-form.
func (u *URLEncode) ValidateKey(key string) error {
	if err := minimalkv.ValidatorFor(u.Store)(encodeKey(key)); err != nil {
		var se *minimalkv.Error
		if asError(err, &se) {
			return &minimalkv.Error{Code: se.Code, Key: key, Err: se.Err}
		}
		return err
	}
	return nil
}

func (u *URLEncode) Delete(ctx context.Context, key string) error {
	return u.Store.Delete(ctx, encodeKey(key))
}

func (u *URLEncode) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := u.Store.Open(ctx, encodeKey(key))
	if err != nil {
		return nil, unmapEncodedErr(err)
	}
	return rc, nil
}

func (u *URLEncode) PutReader(ctx context.Context, key string, r io.Reader) (string, error) {
	inner, err := u.Store.PutReader(ctx, encodeKey(key), r)
	if err != nil {
		return "", unmapEncodedErr(err)
	}
	return decodeKey(inner)
}

// IterKeys decodes every yielded key back to the caller's form. Percent
// encoding preserves prefix order per rune, so the caller's prefix can be
// encoded and pushed down to the backend.
func (u *URLEncode) IterKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for key, err := range u.Store.IterKeys(ctx, encodeKey(prefix)) {
			if err != nil {
				yield("", unmapEncodedErr(err))
				return
			}
			decoded, derr := decodeKey(key)
			if derr != nil {
				yield("", derr)
				return
			}
			if !yield(decoded, nil) {
				return
			}
		}
	}
}

// Get uses the inner store's fast path when it has one.
func (u *URLEncode) Get(ctx context.Context, key string) ([]byte, error) {
	if g, ok := u.Store.(minimalkv.Getter); ok {
		value, err := g.Get(ctx, encodeKey(key))
		if err != nil {
			return nil, unmapEncodedErr(err)
		}
		return value, nil
	}
	rc, err := u.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// HasKey probes through the inner store's fast path when it has one.
func (u *URLEncode) HasKey(ctx context.Context, key string) (bool, error) {
	if c, ok := u.Store.(minimalkv.KeyChecker); ok {
		return c.HasKey(ctx, encodeKey(key))
	}
	rc, err := u.Store.Open(ctx, encodeKey(key))
	if err != nil {
		if minimalkv.IsKeyNotFound(err) {
			return false, nil
		}
		return false, unmapEncodedErr(err)
	}
	rc.Close()
	return true, nil
}

func (u *URLEncode) Copy(ctx context.Context, source, dest string) (string, error) {
	inner, err := u.Base.Copy(ctx, encodeKey(source), encodeKey(dest))
	if err != nil {
		return "", unmapEncodedErr(err)
	}
	return decodeKey(inner)
}

func (u *URLEncode) URLFor(ctx context.Context, key string) (string, error) {
	return u.Base.URLFor(ctx, encodeKey(key))
}

func (u *URLEncode) PutTTL(ctx context.Context, key string, value []byte, ttl minimalkv.TTL) (string, error) {
	inner, err := u.Base.PutTTL(ctx, encodeKey(key), value, ttl)
	if err != nil {
		return "", unmapEncodedErr(err)
	}
	return decodeKey(inner)
}

func (u *URLEncode) PutReaderTTL(ctx context.Context, key string, r io.Reader, ttl minimalkv.TTL) (string, error) {
	inner, err := u.Base.PutReaderTTL(ctx, encodeKey(key), r, ttl)
	if err != nil {
		return "", unmapEncodedErr(err)
	}
	return decodeKey(inner)
}

func decodeKey(key string) (string, error) {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return "", &minimalkv.Error{Code: minimalkv.InvalidKey, Key: key, Err: err}
	}
	return decoded, nil
}

// unmapEncodedErr decodes the inner key inside structured errors back to the
// caller's view; keys that do not decode are left as-is.
func unmapEncodedErr(err error) error {
	var se *minimalkv.Error
	if asError(err, &se) && se.Key != "" {
		if decoded, derr := url.QueryUnescape(se.Key); derr == nil {
			return &minimalkv.Error{Code: se.Code, Key: decoded, Err: se.Err}
		}
	}
	return err
}

var (
	_ minimalkv.Store      = (*URLEncode)(nil)
	_ minimalkv.Getter     = (*URLEncode)(nil)
	_ minimalkv.KeyChecker = (*URLEncode)(nil)
)
