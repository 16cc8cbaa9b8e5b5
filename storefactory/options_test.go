package storefactory

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryCoercion(t *testing.T) {
	values, err := url.ParseQuery("create_if_missing=true&verify=False&port=6379&name=plain")
	require.NoError(t, err)

	opts := ParseQuery(values)
	assert.Equal(t, true, opts["create_if_missing"])
	assert.Equal(t, false, opts["verify"])
	assert.Equal(t, 6379, opts["port"])
	assert.Equal(t, "plain", opts["name"])
}

func TestParseQueryNestedGroups(t *testing.T) {
	values, err := url.ParseQuery(
		"sts_assume_role__role_arn=arn:aws:iam::123:role/reader" +
			"&sts_assume_role__session_name=ingest" +
			"&region=eu-west-1")
	require.NoError(t, err)

	opts := ParseQuery(values)
	assert.Equal(t, "eu-west-1", opts["region"])

	nested := opts.Nested("sts_assume_role")
	arn, ok := nested.String("role_arn")
	require.True(t, ok)
	assert.Equal(t, "arn:aws:iam::123:role/reader", arn)
	session, ok := nested.String("session_name")
	require.True(t, ok)
	assert.Equal(t, "ingest", session)

	// Ungrouped keys never leak into a group, and vice versa.
	_, ok = opts.String("sts_assume_role__role_arn")
	assert.False(t, ok)
	assert.Empty(t, opts.Nested("region"))
}

func TestOptionsAccessors(t *testing.T) {
	opts := Options{
		"flag":   true,
		"count":  3,
		"name":   "store",
		"truthy": "true",
		"digits": "42",
	}

	s, ok := opts.String("name")
	require.True(t, ok)
	assert.Equal(t, "store", s)
	s, ok = opts.String("count")
	require.True(t, ok)
	assert.Equal(t, "3", s)
	_, ok = opts.String("absent")
	assert.False(t, ok)

	assert.True(t, opts.Bool("flag", false))
	assert.True(t, opts.Bool("truthy", false))
	assert.False(t, opts.Bool("absent", false))
	assert.True(t, opts.Bool("absent", true))

	assert.Equal(t, 3, opts.Int("count", 0))
	assert.Equal(t, 42, opts.Int("digits", 0))
	assert.Equal(t, 7, opts.Int("absent", 7))
}

func TestOptionsRequire(t *testing.T) {
	opts := Options{"present": "value", "empty": ""}

	v, err := opts.require("present")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	_, err = opts.require("empty")
	assert.Error(t, err)
	_, err = opts.require("absent")
	assert.Error(t, err)
}
