package decorator

import (
	"context"
	"io"

	"github.com/data-engineering-collective/minimalkv"
)

// ReadOnly rejects every mutating operation while reads pass through
// untouched.
type ReadOnly struct {
	Base
}

// NewReadOnly wraps store so that writes fail with a ReadOnlyStore error.
func NewReadOnly(store minimalkv.Store) *ReadOnly {
	return &ReadOnly{Base{Store: store}}
}

func (r *ReadOnly) Delete(_ context.Context, key string) error {
	return readOnlyErr(key)
}

func (r *ReadOnly) PutReader(_ context.Context, key string, _ io.Reader) (string, error) {
	return "", readOnlyErr(key)
}

// Copy writes the destination key, so it is rejected too.
func (r *ReadOnly) Copy(_ context.Context, _, dest string) (string, error) {
	return "", readOnlyErr(dest)
}

func (r *ReadOnly) PutTTL(_ context.Context, key string, _ []byte, _ minimalkv.TTL) (string, error) {
	return "", readOnlyErr(key)
}

func (r *ReadOnly) PutReaderTTL(_ context.Context, key string, _ io.Reader, _ minimalkv.TTL) (string, error) {
	return "", readOnlyErr(key)
}

func readOnlyErr(key string) error {
	return &minimalkv.Error{
		Code: minimalkv.ReadOnlyStore,
		Key:  key,
		Err:  errString("store is read-only"),
	}
}
