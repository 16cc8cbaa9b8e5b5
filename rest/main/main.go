// Command main serves the stores declared in a YAML config file over HTTP.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/data-engineering-collective/minimalkv"
	"github.com/data-engineering-collective/minimalkv/rest"
	"github.com/data-engineering-collective/minimalkv/storefactory"
)

func main() {
	configPath := flag.String("config", "stores.yaml", "path to the store configuration file")
	listen := flag.String("listen", "localhost:8080", "address to serve on")
	flag.Parse()

	minimalkv.ConfigureLogging()

	config, err := storefactory.LoadConfig(*configPath)
	if err != nil {
		slog.Error("loading store config failed", "error", err)
		os.Exit(1)
	}
	stores, err := config.OpenAll(context.Background(), storefactory.DefaultRegistry())
	if err != nil {
		slog.Error("opening stores failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		for name, store := range stores {
			if err := store.Close(); err != nil {
				slog.Warn("closing store failed", "store", name, "error", err)
			}
		}
	}()

	router := rest.NewAPI(stores).Router()
	if err := router.Run(*listen); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
