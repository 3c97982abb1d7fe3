// Package config loads routecore's environment-driven configuration,
// following the same env-var/defaults idiom as the teacher's ServerConfig.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
)

// Config is the complete set of knobs the ops entrypoint (cmd/server) reads
// from the environment. The offline tile builder (cmd/tilegen) does not use
// it; it takes command-line flags.
type Config struct {
	PbfPath           string
	CacheDir          string
	TilesDir          string // optional; empty disables tier 3
	LRUCapacity       int
	HTTPAddr          string
	ElevationProvider string // "none" | "http"
	ElevationURL      string

	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxConcurrent int
	CORSOrigin    string
}

// Load reads Config from the environment, applying defaults for anything
// unset. PBF_PATH and CACHE_DIR are required.
func Load() (Config, error) {
	cfg := Default()

	pbfPath, ok := os.LookupEnv("PBF_PATH")
	if !ok || pbfPath == "" {
		return Config{}, fmt.Errorf("PBF_PATH is required")
	}
	cfg.PbfPath = pbfPath

	cacheDir, ok := os.LookupEnv("CACHE_DIR")
	if !ok || cacheDir == "" {
		return Config{}, fmt.Errorf("CACHE_DIR is required")
	}
	cfg.CacheDir = cacheDir

	if v := os.Getenv("TILES_DIR"); v != "" {
		cfg.TilesDir = v
	}
	if v := os.Getenv("LRU_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LRU_CAPACITY: %w", err)
		}
		cfg.LRUCapacity = n
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("ELEVATION_PROVIDER"); v != "" {
		cfg.ElevationProvider = v
	}
	if v := os.Getenv("ELEVATION_URL"); v != "" {
		cfg.ElevationURL = v
	}

	return cfg, nil
}

// Default returns the baseline configuration before environment overrides,
// matching the teacher's DefaultConfig pattern.
func Default() Config {
	return Config{
		LRUCapacity:       20,
		HTTPAddr:          ":8080",
		ElevationProvider: "none",
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		MaxConcurrent:     runtime.NumCPU() * 2,
	}
}
