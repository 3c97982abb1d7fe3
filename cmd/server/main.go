// Command server is the routecore ops entrypoint (C11): it loads
// environment configuration, wires the graph cache and elevation provider,
// and serves the HTTP API until a shutdown signal arrives.
package main

import (
	"log/slog"
	"os"

	"routecore/pkg/api"
	"routecore/pkg/cache"
	"routecore/pkg/config"
	"routecore/pkg/elevation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", "err", err)
		os.Exit(1)
	}

	store, err := cache.NewStore(cfg.LRUCapacity, cfg.CacheDir, cfg.TilesDir, cfg.PbfPath)
	if err != nil {
		slog.Error("building cache store", "err", err)
		os.Exit(1)
	}

	elev := buildElevationProvider(cfg)

	handlers := api.NewHandlers(store, elev)
	serverCfg := api.ServerConfig{
		Addr:          cfg.HTTPAddr,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		MaxConcurrent: cfg.MaxConcurrent,
		CORSOrigin:    cfg.CORSOrigin,
	}
	srv := api.NewServer(serverCfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func buildElevationProvider(cfg config.Config) elevation.Provider {
	switch cfg.ElevationProvider {
	case "http":
		if cfg.ElevationURL == "" {
			slog.Warn("ELEVATION_PROVIDER=http but ELEVATION_URL is unset; falling back to none")
			return elevation.NullProvider{}
		}
		return elevation.NewHTTPProvider(cfg.ElevationURL)
	default:
		return elevation.NullProvider{}
	}
}
