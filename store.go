package minimalkv

import (
	"context"
	"io"
	"iter"
)

// Store is the minimal contract a backend must implement. All composite
// operations (Get, Put, file transfer, eager listing, existence checks) are
// derived from these four primitives by the package-level functions, so a new
// backend only needs to provide this interface plus Close.
//
// Primitive implementations do not validate key syntax; validation happens
// once, in the derived layer, before dispatch.
type Store interface {
	// Delete removes the value stored at key. Deleting an absent key is a
	// no-op; all backends in this module share that policy.
	Delete(ctx context.Context, key string) error

	// Open returns a lazily-read stream over the value at key. The caller
	// must close it on every exit path. Returns a KeyNotFound error if the
	// key is absent.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// PutReader stores the content read from r at key and returns the
	// (possibly backend-normalized) key under which the value was stored.
	PutReader(ctx context.Context, key string, r io.Reader) (string, error)

	// IterKeys yields keys, restricted to those starting with prefix when
	// prefix is non-empty. The sequence is finite, lazy, and restartable;
	// re-ranging yields a fresh snapshot with no consistency guarantee
	// against concurrent mutation.
	IterKeys(ctx context.Context, prefix string) iter.Seq2[string, error]

	// Close releases resources held by the store. Decorators close the
	// store they wrap.
	Close() error
}

// Getter is an optional fast path for reading a whole value into memory.
// The derived Get prefers it over Open-and-drain when present.
type Getter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Putter is an optional fast path for storing a byte slice. The derived Put
// prefers it over wrapping the bytes in a reader when present.
type Putter interface {
	Put(ctx context.Context, key string, value []byte) (string, error)
}

// KeyChecker is an optional cheap existence probe. The derived HasKey
// prefers it over attempting Open when present.
type KeyChecker interface {
	HasKey(ctx context.Context, key string) (bool, error)
}

// Copier is the optional capability for backends with a native copy that is
// cheaper than read-then-write.
type Copier interface {
	// Copy duplicates the value at source under dest and returns the
	// destination key. Returns a KeyNotFound error if source is absent.
	Copy(ctx context.Context, source, dest string) (string, error)
}

// URLer is the optional capability of producing a location-addressable
// reference to a value, e.g. for direct client access. The URL is only valid
// while the key exists.
type URLer interface {
	URLFor(ctx context.Context, key string) (string, error)
}

// TTLStore is the optional capability of expiring keys after a duration.
// Stores without it reject any TTL other than UseDefault and NotSet.
type TTLStore interface {
	// PutTTL stores value at key, expiring it after ttl.
	PutTTL(ctx context.Context, key string, value []byte, ttl TTL) (string, error)
	// PutReaderTTL stores the content read from r at key, expiring it after ttl.
	PutReaderTTL(ctx context.Context, key string, r io.Reader, ttl TTL) (string, error)
	// DefaultTTL is the expiry applied when a caller passes UseDefault.
	DefaultTTL() TTL
}

// KeyValidator lets a store (typically the extended-keyspace wrapper)
// override the accepted key character set. The derived operations consult it
// before every keyed call; stores without it get ValidateKey.
type KeyValidator interface {
	ValidateKey(key string) error
}

// Wrapper is implemented by decorators; Inner returns the wrapped store.
// Capability probes walk the chain so that a wrapper's pass-through methods
// only count when some underlying backend actually provides the capability.
type Wrapper interface {
	Inner() Store
}

// SupportsCopy reports whether s (or, through any chain of wrappers, its
// terminal backend) provides the native copy capability. Absence is a
// feature query, not an error.
func SupportsCopy(s Store) bool {
	return supports(s, func(s Store) bool { _, ok := s.(Copier); return ok })
}

// SupportsURL reports whether s provides the URL generation capability.
func SupportsURL(s Store) bool {
	return supports(s, func(s Store) bool { _, ok := s.(URLer); return ok })
}

// SupportsTTL reports whether s provides the time-to-live capability.
func SupportsTTL(s Store) bool {
	return supports(s, func(s Store) bool { _, ok := s.(TTLStore); return ok })
}

func supports(s Store, probe func(Store) bool) bool {
	for {
		if !probe(s) {
			return false
		}
		w, ok := s.(Wrapper)
		if !ok {
			return true
		}
		s = w.Inner()
	}
}

// ValidatorFor returns the key validation function s applies: the store's
// own, when it overrides the character set, or the default otherwise.
func ValidatorFor(s Store) func(string) error {
	if v, ok := s.(KeyValidator); ok {
		return v.ValidateKey
	}
	return ValidateKey
}
