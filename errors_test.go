package minimalkv

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "key not found: \"a-key\"", NewKeyNotFound("a-key").Error())

	err := NewBackendFailure("a-key", errors.New("connection refused"))
	assert.Equal(t, "backend failure: \"a-key\", details: connection refused", err.Error())

	bare := &Error{Code: ReadOnlyStore}
	assert.Equal(t, "store is read-only", bare.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := fs.ErrPermission
	err := NewBackendFailure("k", cause)
	assert.True(t, errors.Is(err, fs.ErrPermission))
}

func TestErrorIsMatchesOnCode(t *testing.T) {
	err := NewKeyNotFound("one")
	assert.True(t, errors.Is(err, NewKeyNotFound("another")))
	assert.False(t, errors.Is(err, &Error{Code: InvalidKey}))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("opening value: %w", NewKeyNotFound("k"))
	assert.True(t, HasCode(err, KeyNotFound))
	assert.True(t, IsKeyNotFound(err))
	assert.False(t, IsInvalidKey(err))
}

func TestClassifierHelpers(t *testing.T) {
	require.True(t, IsReadOnly(&Error{Code: ReadOnlyStore}))
	require.True(t, IsUnsupported(&Error{Code: UnsupportedCapability}))
	require.False(t, IsKeyNotFound(errors.New("plain")))
	require.False(t, HasCode(nil, KeyNotFound))
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "unknown error", Unknown.String())
	assert.Equal(t, "unknown storage scheme", UnknownScheme.String())
	assert.Equal(t, "configuration parse failure", ConfigParse.String())
}
