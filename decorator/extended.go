package decorator

import (
	"github.com/data-engineering-collective/minimalkv"
)

// ExtendedKeyspace relaxes key validation to the extended character set,
// which additionally allows "/" and spaces. Backends whose native keyspace
// covers these characters (filesystems, object stores) can be wrapped
// directly; others should be wrapped in URLEncode first.
type ExtendedKeyspace struct {
	Base
}

// NewExtendedKeyspace wraps store with extended-keyspace validation.
func NewExtendedKeyspace(store minimalkv.Store) *ExtendedKeyspace {
	return &ExtendedKeyspace{Base{Store: store}}
}

// ValidateKey applies the extended character set.
func (e *ExtendedKeyspace) ValidateKey(key string) error {
	return minimalkv.ValidateExtendedKey(key)
}

var _ minimalkv.KeyValidator = (*ExtendedKeyspace)(nil)
