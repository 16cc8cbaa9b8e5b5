package minimalkv

import (
	"fmt"
	"time"
)

type ttlMode int

const (
	ttlUseDefault ttlMode = iota
	ttlNotSet
	ttlForever
	ttlExpires
)

// TTL expresses how long a stored value lives. Three sentinels are
// distinguished from an explicit finite duration: the zero value UseDefault
// defers to the store's configured default, NotSet performs no expiry
// configuration at all, and Forever explicitly never expires.
type TTL struct {
	mode ttlMode
	d    time.Duration
}

var (
	// UseDefault defers to the store's configured default TTL.
	UseDefault = TTL{}
	// NotSet applies no TTL configuration; on stores that track expiry it
	// clears any previous expiry for the key.
	NotSet = TTL{mode: ttlNotSet}
	// Forever marks the value as never expiring.
	Forever = TTL{mode: ttlForever}
)

// Expires returns a TTL after which the value disappears.
func Expires(d time.Duration) TTL {
	return TTL{mode: ttlExpires, d: d}
}

// IsDefault reports whether t defers to the store default.
func (t TTL) IsDefault() bool { return t.mode == ttlUseDefault }

// IsNotSet reports whether t performs no expiry configuration.
func (t TTL) IsNotSet() bool { return t.mode == ttlNotSet }

// IsForever reports whether t never expires.
func (t TTL) IsForever() bool { return t.mode == ttlForever }

// Expiry returns the finite duration and whether t carries one.
func (t TTL) Expiry() (time.Duration, bool) {
	return t.d, t.mode == ttlExpires
}

func (t TTL) String() string {
	switch t.mode {
	case ttlUseDefault:
		return "default"
	case ttlNotSet:
		return "not_set"
	case ttlForever:
		return "forever"
	}
	return t.d.String()
}

// Validate rejects negative finite durations.
func (t TTL) Validate() error {
	if t.mode == ttlExpires && t.d < 0 {
		return &Error{Code: InvalidTTL, Err: fmt.Errorf("ttl must not be negative: %v", t.d)}
	}
	return nil
}

// Resolve replaces UseDefault with the store's configured default.
func (t TTL) Resolve(storeDefault TTL) TTL {
	if t.IsDefault() {
		return storeDefault
	}
	return t
}
