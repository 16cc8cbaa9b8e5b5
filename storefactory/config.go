package storefactory

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/data-engineering-collective/minimalkv"
)

// Config declares a set of named stores, each configured by a URL.
type Config struct {
	Stores map[string]string `yaml:"stores"`
}

// LoadConfig reads a YAML store configuration:
//
//	stores:
//	  sessions: redis://localhost:6379/1
//	  artifacts: hfs:///data/artifacts?create_if_missing=true
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, minimalkv.NewConfigParse("reading store config %s: %v", path, err)
	}
	var config Config
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, minimalkv.NewConfigParse("parsing store config %s: %v", path, err)
	}
	if len(config.Stores) == 0 {
		return nil, minimalkv.NewConfigParse("store config %s declares no stores", path)
	}
	return &config, nil
}

// OpenAll builds every declared store concurrently. On any failure the
// stores already opened are closed and the first error is returned.
func (c *Config) OpenAll(ctx context.Context, r *Registry) (map[string]minimalkv.Store, error) {
	var mu sync.Mutex
	stores := make(map[string]minimalkv.Store, len(c.Stores))

	g, gctx := errgroup.WithContext(ctx)
	for name, rawURL := range c.Stores {
		g.Go(func() error {
			store, err := r.FromURL(gctx, rawURL)
			if err != nil {
				return err
			}
			mu.Lock()
			stores[name] = store
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, store := range stores {
			store.Close()
		}
		return nil, err
	}
	return stores, nil
}
