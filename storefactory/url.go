package storefactory

import (
	"context"
	"net/url"
	"strings"

	"github.com/data-engineering-collective/minimalkv"
	"github.com/data-engineering-collective/minimalkv/decorator"
)

// defaultRegistry backs the package-level entry points.
var defaultRegistry = DefaultRegistry()

// New builds a store for scheme from opts using the built-in registry.
func New(ctx context.Context, scheme string, opts Options) (minimalkv.Store, error) {
	return defaultRegistry.New(ctx, scheme, opts)
}

// FromURL builds a configured store from a URL using the built-in registry.
func FromURL(ctx context.Context, rawURL string) (minimalkv.Store, error) {
	return defaultRegistry.FromURL(ctx, rawURL)
}

// FromURL builds a configured store from a URL such as
//
//	memory://
//	fs:///data/values?create_if_missing=true
//	redis://:password@localhost:6379/2
//	s3://access:secret@endpoint/bucket?create_if_missing=true
//	hfs:///data/values#wrap:readonly
//
// The scheme selects the backend ("h"-prefixed schemes enable the extended
// keyspace), userinfo carries credentials, and query parameters become
// options. Decorators are listed either in a "#wrap:" fragment or appended
// to the scheme with "+"; mixing both styles is an error.
func (r *Registry) FromURL(ctx context.Context, rawURL string) (minimalkv.Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, minimalkv.NewConfigParse("malformed store url %q: %v", rawURL, err)
	}
	if u.Scheme == "" {
		return nil, minimalkv.NewConfigParse("store url %q has no scheme", rawURL)
	}

	scheme, wrappers, err := splitWrappers(u)
	if err != nil {
		return nil, err
	}

	opts := ParseQuery(u.Query())
	if user := u.User.Username(); user != "" {
		opts["user"] = user
	}
	if secret, ok := u.User.Password(); ok {
		opts["secret"] = secret
	}
	if err := applyLocation(r.baseScheme(scheme), u, opts); err != nil {
		return nil, err
	}

	store, err := r.New(ctx, scheme, opts)
	if err != nil {
		return nil, err
	}
	wrapped, err := applyWrappers(store, wrappers)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wrapped, nil
}

// splitWrappers extracts decorator names from either the "scheme+wrapper"
// form or the "#wrap:" fragment; using both at once is rejected.
func splitWrappers(u *url.URL) (string, []string, error) {
	parts := strings.Split(strings.ToLower(u.Scheme), "+")
	scheme, schemeWrappers := parts[0], parts[1:]

	var fragmentWrappers []string
	if u.Fragment != "" {
		spec, ok := strings.CutPrefix(u.Fragment, "wrap:")
		if !ok {
			return "", nil, minimalkv.NewConfigParse("unrecognized url fragment %q", u.Fragment)
		}
		for _, name := range strings.Split(spec, "+") {
			if name != "" {
				fragmentWrappers = append(fragmentWrappers, strings.ToLower(name))
			}
		}
	}

	if len(schemeWrappers) > 0 && len(fragmentWrappers) > 0 {
		return "", nil, minimalkv.NewConfigParse("store url mixes scheme wrappers and a #wrap: fragment")
	}
	if len(fragmentWrappers) > 0 {
		return scheme, fragmentWrappers, nil
	}
	return scheme, schemeWrappers, nil
}

// applyLocation folds the URL's host, port, and path into the options the
// scheme's constructor expects; extended-keyspace aliases have already been
// resolved to the scheme they relax.
func applyLocation(scheme string, u *url.URL, opts Options) error {
	switch scheme {
	case "memory":
		return nil
	case "fs", "file", "sqlite", "pebble":
		path := u.Host + u.Path
		if path != "" {
			opts["path"] = path
		}
		return nil
	case "redis":
		if u.Hostname() != "" {
			opts["host"] = u.Hostname()
		}
		if u.Port() != "" {
			opts["port"] = u.Port()
		}
		if db := strings.Trim(u.Path, "/"); db != "" {
			opts["db"] = db
		}
		return nil
	case "s3":
		if u.Host != "" {
			opts["host"] = u.Host
		}
		if bucket := strings.Trim(u.Path, "/"); bucket != "" {
			if strings.Contains(bucket, "/") {
				return minimalkv.NewConfigParse("s3 url path %q must name exactly one bucket", u.Path)
			}
			opts["bucket"] = bucket
		}
		return nil
	case "cassandra":
		if u.Host != "" {
			opts["host"] = u.Host
		}
		if keyspace := strings.Trim(u.Path, "/"); keyspace != "" {
			opts["keyspace"] = keyspace
		}
		return nil
	default:
		// Custom registrations receive the raw parts and interpret them
		// themselves.
		if u.Host != "" {
			opts["host"] = u.Host
		}
		if u.Path != "" {
			opts["path"] = strings.TrimPrefix(u.Path, "/")
		}
		return nil
	}
}

// applyWrappers decorates store with the named wrappers, first name
// innermost.
func applyWrappers(store minimalkv.Store, wrappers []string) (minimalkv.Store, error) {
	for _, name := range wrappers {
		switch name {
		case "readonly":
			store = decorator.NewReadOnly(store)
		case "urlencode":
			store = decorator.NewURLEncode(store)
		default:
			return nil, minimalkv.NewConfigParse("unknown store wrapper %q", name)
		}
	}
	return store, nil
}
