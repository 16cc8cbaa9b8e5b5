package minimalkv

import (
	"regexp"
	"unicode/utf8"
)

// MaxKeyLength is the maximum accepted key length, in characters.
const MaxKeyLength = 250

// validNonAlnum is the punctuation accepted in keys besides letters and digits.
const validNonAlnum = "`!\"#$%&'()+,\\-.<=>?@\\[\\]^_{}~"

var (
	validKeyRe = regexp.MustCompile(`^[0-9a-zA-Z\p{L}` + validNonAlnum + `]+$`)
	// The extended keyspace additionally allows forward slashes and spaces.
	validExtendedKeyRe = regexp.MustCompile(`^[0-9a-zA-Z\p{L}` + validNonAlnum + `/ ]+$`)
)

// ValidateKey checks key syntax against the default accepted character set:
// letters (including non-ASCII), digits, and the punctuation
// `!"#$%&'()+,-.<=>?@[]^_{}~. Keys must be non-empty and at most
// MaxKeyLength characters. It returns an InvalidKey error otherwise.
func ValidateKey(key string) error {
	return validate(key, validKeyRe)
}

// ValidateExtendedKey is ValidateKey with the extended character set, which
// additionally permits forward slashes (as separators) and spaces.
func ValidateExtendedKey(key string) error {
	return validate(key, validExtendedKeyRe)
}

func validate(key string, re *regexp.Regexp) error {
	if key == "" {
		return &Error{Code: InvalidKey, Err: errEmptyKey}
	}
	if utf8.RuneCountInString(key) > MaxKeyLength {
		return &Error{Code: InvalidKey, Key: key, Err: errKeyTooLong}
	}
	if !re.MatchString(key) {
		return &Error{Code: InvalidKey, Key: key, Err: errKeyCharset}
	}
	return nil
}

var (
	errEmptyKey   = errorString("key is empty")
	errKeyTooLong = errorString("key exceeds 250 characters")
	errKeyCharset = errorString("key contains characters outside the accepted set")
)

type errorString string

func (e errorString) Error() string { return string(e) }
