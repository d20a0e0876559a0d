package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names the supported cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// AppConfig is the process configuration. It is plain data: everything the
// core needs is passed into constructors explicitly, never read from the
// environment inside the core.
type AppConfig struct {
	Port string

	// DefaultTTL is how long successful per-source batches stay cached.
	DefaultTTL time.Duration

	// PerSourceTimeout bounds each adapter call.
	PerSourceTimeout time.Duration

	// ProximityToleranceKm is the entity-match distance tolerance.
	ProximityToleranceKm float64

	// CacheBackend selects "memory" or "redis".
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SweepInterval controls the expired-entry sweep of the in-memory
	// backend. Zero disables the sweep.
	SweepInterval time.Duration

	// ErddapServers lists ERDDAP base URLs as "name=url" pairs.
	ErddapServers map[string]string

	// AxdsEnabled turns the Axiom search adapter on.
	AxdsEnabled bool
	AxdsBaseURL string

	// HTTPTimeout applies to the shared outbound HTTP client.
	HTTPTimeout time.Duration
}

// Load reads configuration from the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		Port:          getenvDefault("PORT", "8080"),
		CacheBackend:  getenvDefault("CACHE_BACKEND", BackendMemory),
		RedisAddr:     getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),
		AxdsEnabled:   getenvBool("AXDS_ENABLED", true),
		AxdsBaseURL:   os.Getenv("AXDS_BASE_URL"),
	}

	if cfg.CacheBackend != BackendMemory && cfg.CacheBackend != BackendRedis {
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q", cfg.CacheBackend)
	}

	var err error
	if cfg.DefaultTTL, err = getenvDuration("CACHE_TTL", "15m"); err != nil {
		return nil, err
	}
	if cfg.PerSourceTimeout, err = getenvDuration("PER_SOURCE_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getenvDuration("CACHE_SWEEP_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "45s"); err != nil {
		return nil, err
	}

	cfg.ProximityToleranceKm = getenvFloat("PROXIMITY_TOLERANCE_KM", 5.0)

	cfg.ErddapServers, err = parseServers(getenvDefault(
		"ERDDAP_SERVERS",
		"erddap=https://erddap.sensors.ioos.us/erddap",
	))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseServers splits a comma-separated list of "name=url" pairs.
func parseServers(raw string) (map[string]string, error) {
	servers := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return servers, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		name, serverURL, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found || name == "" || serverURL == "" {
			return nil, fmt.Errorf("invalid ERDDAP_SERVERS entry %q; want name=url", pair)
		}
		servers[name] = serverURL
	}
	return servers, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
