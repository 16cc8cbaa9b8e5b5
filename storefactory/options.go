// Package storefactory builds configured stores from option maps, URLs, and
// YAML config files. A scheme registry maps URL schemes to backend
// constructors; decorators are expressed in the URL itself.
package storefactory

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/data-engineering-collective/minimalkv"
)

// Options is a flat bag of configuration values for one store. Values are
// strings, bools, ints, or nested Options for grouped settings.
type Options map[string]any

// nestedSep separates an option group from its member, as in
// "sts_assume_role__role_arn".
const nestedSep = "__"

// ParseQuery converts URL query parameters into Options. Values that look
// like booleans or integers are coerced, and keys containing a double
// underscore are collected into a nested group, so
// "sts_assume_role__role_arn=arn" lands under Nested("sts_assume_role").
func ParseQuery(values url.Values) Options {
	opts := Options{}
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		value := coerce(vs[len(vs)-1])
		group, member, nested := strings.Cut(key, nestedSep)
		if nested && group != "" && member != "" {
			sub, ok := opts[group].(Options)
			if !ok {
				sub = Options{}
				opts[group] = sub
			}
			sub[member] = value
			continue
		}
		opts[key] = value
	}
	return opts
}

func coerce(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return raw
}

// String returns the option as a string; numeric and boolean values are
// rendered back to their textual form.
func (o Options) String(key string) (string, bool) {
	v, ok := o[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	}
	return "", false
}

// Bool returns the option as a boolean, falling back to def when absent.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
	}
	return def
}

// Int returns the option as an integer, falling back to def when absent or
// unparseable.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return def
}

// Nested returns the named option group, or an empty one.
func (o Options) Nested(group string) Options {
	if sub, ok := o[group].(Options); ok {
		return sub
	}
	return Options{}
}

// require returns the option as a string or a ConfigParse error naming it.
func (o Options) require(key string) (string, error) {
	s, ok := o.String(key)
	if !ok || s == "" {
		return "", minimalkv.NewConfigParse("missing required option: %s", key)
	}
	return s, nil
}
