package storefactory

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"github.com/data-engineering-collective/minimalkv"
	"github.com/data-engineering-collective/minimalkv/aws_s3"
	"github.com/data-engineering-collective/minimalkv/cassandra"
	"github.com/data-engineering-collective/minimalkv/decorator"
	"github.com/data-engineering-collective/minimalkv/fs"
	"github.com/data-engineering-collective/minimalkv/memory"
	"github.com/data-engineering-collective/minimalkv/pebble"
	"github.com/data-engineering-collective/minimalkv/redis"
	"github.com/data-engineering-collective/minimalkv/sqlstore"
)

// Constructor builds a store from parsed options.
type Constructor func(ctx context.Context, opts Options) (minimalkv.Store, error)

// Registry maps URL schemes to store constructors.
type Registry struct {
	mu      sync.RWMutex
	schemes map[string]Constructor
	// extended maps an "h"-prefixed alias back to the scheme it relaxes.
	extended map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemes:  map[string]Constructor{},
		extended: map[string]string{},
	}
}

// Register binds a scheme to a constructor, replacing any previous binding.
func Register(r *Registry, scheme string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemes[strings.ToLower(scheme)] = c
}

// RegisterExtended binds the "h"-prefixed variant of scheme to a constructor
// and records the alias, so URL parsing locates hosts and paths for both
// spellings alike. Schemes that merely start with "h" are unaffected.
func RegisterExtended(r *Registry, scheme string, c Constructor) {
	scheme = strings.ToLower(scheme)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemes["h"+scheme] = c
	r.extended["h"+scheme] = scheme
}

// baseScheme resolves an extended-keyspace alias to the scheme it relaxes;
// any other scheme resolves to itself.
func (r *Registry) baseScheme(scheme string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if base, ok := r.extended[scheme]; ok {
		return base
	}
	return scheme
}

// New builds a store for the scheme from opts.
func (r *Registry) New(ctx context.Context, scheme string, opts Options) (minimalkv.Store, error) {
	r.mu.RLock()
	c, ok := r.schemes[strings.ToLower(scheme)]
	r.mu.RUnlock()
	if !ok {
		return nil, &minimalkv.Error{
			Code: minimalkv.UnknownScheme,
			Err:  errString("no store registered for scheme " + scheme),
		}
	}
	return c(ctx, opts)
}

type errString string

func (e errString) Error() string { return string(e) }

// DefaultRegistry returns a registry with every built-in backend. Each
// scheme also gets an "h"-prefixed variant that relaxes validation to the
// extended keyspace, so keys may contain "/" and spaces.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	register := func(scheme string, c Constructor) {
		Register(r, scheme, c)
		RegisterExtended(r, scheme, extended(c))
	}
	register("memory", newMemory)
	register("fs", newFS)
	register("file", newFS)
	register("redis", newRedis)
	register("s3", newS3)
	register("sqlite", newSQLite)
	register("pebble", newPebble)
	register("cassandra", newCassandra)
	return r
}

// extended wraps a constructor's store in the extended-keyspace decorator.
func extended(c Constructor) Constructor {
	return func(ctx context.Context, opts Options) (minimalkv.Store, error) {
		s, err := c(ctx, opts)
		if err != nil {
			return nil, err
		}
		return decorator.NewExtendedKeyspace(s), nil
	}
}

func newMemory(_ context.Context, _ Options) (minimalkv.Store, error) {
	return memory.New(), nil
}

func newFS(_ context.Context, opts Options) (minimalkv.Store, error) {
	path, err := opts.require("path")
	if err != nil {
		return nil, err
	}
	if opts.Bool("create_if_missing", false) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, minimalkv.NewBackendFailure("", err)
		}
	}
	return fs.New(path)
}

func newRedis(_ context.Context, opts Options) (minimalkv.Store, error) {
	roptions := redis.DefaultOptions()
	if host, ok := opts.String("host"); ok {
		address := host
		if port, ok := opts.String("port"); ok {
			address = host + ":" + port
		}
		roptions.Address = address
	}
	if secret, ok := opts.String("secret"); ok {
		roptions.Password = secret
	}
	roptions.DB = opts.Int("db", 0)
	if seconds := opts.Int("default_ttl_secs", 0); seconds > 0 {
		roptions.DefaultTTL = minimalkv.Expires(time.Duration(seconds) * time.Second)
	}
	return redis.Open(roptions), nil
}

func newS3(ctx context.Context, opts Options) (minimalkv.Store, error) {
	bucket, err := opts.require("bucket")
	if err != nil {
		return nil, err
	}
	config := aws_s3.Config{
		Region:       mustString(opts, "region"),
		UsePathStyle: opts.Bool("use_path_style", false),
	}
	if host, ok := opts.String("host"); ok && host != "" {
		endpoint := host
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		config.HostEndpointUrl = endpoint
	}
	if user, ok := opts.String("user"); ok {
		config.AccessKey = user
	}
	if secret, ok := opts.String("secret"); ok {
		config.SecretKey = secret
	}
	client := aws_s3.Connect(config)
	return aws_s3.New(ctx, client, bucket, config.Region, opts.Bool("create_if_missing", false))
}

func mustString(opts Options, key string) string {
	s, _ := opts.String(key)
	return s
}

func newSQLite(ctx context.Context, opts Options) (minimalkv.Store, error) {
	path, err := opts.require("path")
	if err != nil {
		return nil, err
	}
	table, _ := opts.String("table")
	return sqlstore.OpenSQLite(ctx, path, table)
}

func newPebble(_ context.Context, opts Options) (minimalkv.Store, error) {
	path, err := opts.require("path")
	if err != nil {
		return nil, err
	}
	return pebble.Open(path)
}

func newCassandra(ctx context.Context, opts Options) (minimalkv.Store, error) {
	host, err := opts.require("host")
	if err != nil {
		return nil, err
	}
	keyspace, err := opts.require("keyspace")
	if err != nil {
		return nil, err
	}
	config := cassandra.Config{
		ClusterHosts:    strings.Split(host, ","),
		Keyspace:        keyspace,
		CreateIfMissing: opts.Bool("create_if_missing", false),
	}
	if table, ok := opts.String("table"); ok {
		config.Table = table
	}
	if user, ok := opts.String("user"); ok {
		secret, _ := opts.String("secret")
		config.Authenticator = gocql.PasswordAuthenticator{Username: user, Password: secret}
	}
	return cassandra.Open(ctx, config)
}
