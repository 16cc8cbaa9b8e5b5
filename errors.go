package minimalkv

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures surfaced by stores and the composition core.
type ErrorCode int

const (
	Unknown ErrorCode = iota
	// InvalidKey: key is empty, longer than MaxKeyLength, or contains
	// characters outside the store's accepted set.
	InvalidKey
	// KeyNotFound: no value is stored at the key.
	KeyNotFound
	// ReadOnlyStore: a mutation was attempted through a read-only wrapper.
	ReadOnlyStore
	// UnsupportedCapability: the store does not provide the requested
	// optional capability (copy, URL generation, time-to-live).
	UnsupportedCapability
	// InvalidTTL: a negative or otherwise malformed time-to-live value.
	InvalidTTL
	// ConfigParse: malformed configuration string or missing required option.
	ConfigParse
	// UnknownScheme: no constructor registered for the URL scheme.
	UnknownScheme
	// BackendFailure: failure reported by the backend collaborator
	// (network, permission, quota, serialization).
	BackendFailure
)

func (c ErrorCode) String() string {
	switch c {
	case InvalidKey:
		return "invalid key"
	case KeyNotFound:
		return "key not found"
	case ReadOnlyStore:
		return "store is read-only"
	case UnsupportedCapability:
		return "capability not supported"
	case InvalidTTL:
		return "invalid ttl"
	case ConfigParse:
		return "configuration parse failure"
	case UnknownScheme:
		return "unknown storage scheme"
	case BackendFailure:
		return "backend failure"
	}
	return "unknown error"
}

// Error is the custom error type shared by all minimalkv stores.
type Error struct {
	Code ErrorCode
	// Key is the store key involved, when the failure concerns one.
	Key string
	// Err is the wrapped cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Key != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s, details: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error carrying the same code, so that
// errors.Is can match on classification alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HasCode reports whether err is or wraps a minimalkv *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsKeyNotFound reports whether err signifies an absent key.
func IsKeyNotFound(err error) bool { return HasCode(err, KeyNotFound) }

// IsInvalidKey reports whether err signifies a key syntax failure.
func IsInvalidKey(err error) bool { return HasCode(err, InvalidKey) }

// IsReadOnly reports whether err signifies a write through a read-only wrapper.
func IsReadOnly(err error) bool { return HasCode(err, ReadOnlyStore) }

// IsUnsupported reports whether err signifies a missing optional capability.
func IsUnsupported(err error) bool { return HasCode(err, UnsupportedCapability) }

// NewKeyNotFound returns the error reported when no value is stored at key.
func NewKeyNotFound(key string) error {
	return &Error{Code: KeyNotFound, Key: key}
}

// NewBackendFailure wraps a collaborator-reported failure for key.
func NewBackendFailure(key string, err error) error {
	return &Error{Code: BackendFailure, Key: key, Err: err}
}

// NewConfigParse returns a configuration failure with a formatted detail message.
func NewConfigParse(format string, args ...any) error {
	return &Error{Code: ConfigParse, Err: fmt.Errorf(format, args...)}
}
