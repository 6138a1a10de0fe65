// Package config loads process configuration from environment variables
// (with an optional .env file), following the teacher's
// internal/config/config.go idiom: a flat struct, env-var-with-default
// loading, and no configuration file format beyond .env.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings cmd/corelisp's subcommands and internal/remote's
// server read at startup.
type Config struct {
	// CacheDir is the persistent object cache's root directory (spec §6:
	// "a single cache root directory containing objects/<hash>.o
	// files"). Empty disables the persistent cache; the incremental
	// in-memory cache still runs.
	CacheDir string

	// CacheMasterKey, when set, turns on at-rest encryption for every
	// object CacheDir stores: internal/cache.Keyring derives the active
	// key from this secret via HKDF rather than storing key material
	// anywhere. Empty leaves objects unencrypted.
	CacheMasterKey string
	// CacheEncryptionAlgo selects the cipher of the keyring's first key
	// version, used when the keyring manifest is created
	// ("xchacha20poly1305" or "aesgcm"); defaults to xchacha20poly1305.
	CacheEncryptionAlgo string

	// SearchPaths is the module loader's search path (spec §4.6), colon-separated.
	SearchPaths []string

	// RemoteAddr is the remote compile server's listen address ("host:port").
	RemoteAddr string
	// NReplAddr is the nREPL engine's listen address.
	NReplAddr string

	// CompileFiles seeds *compile-files* at startup.
	CompileFiles bool

	// IncrementalCacheTTL is read from
	// CORELISP_INCREMENTAL_CACHE_TTL_SECONDS (0 when unset or invalid).
	// No component reads it: the in-memory incremental cache keeps an
	// entry until it is replaced or invalidated, with no expiry.
	IncrementalCacheTTL time.Duration
}

// Load reads a .env file if present (ignoring a missing file, exactly as
// the teacher's db/sqlite_integration_test.go does via `_ =
// godotenv.Load()`) and then builds a Config from environment variables,
// applying the same has-default-then-override-from-env shape as
// internal/config/config.go's LoadConfig.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		CacheDir:            getEnv("CORELISP_CACHE_DIR", "corelisp-cache"),
		CacheMasterKey:      os.Getenv("CORELISP_CACHE_MASTER_KEY"),
		CacheEncryptionAlgo: getEnv("CORELISP_CACHE_ENCRYPTION_ALGO", "xchacha20poly1305"),
		RemoteAddr:          getEnv("CORELISP_REMOTE_ADDR", "127.0.0.1:7888"),
		NReplAddr:           getEnv("CORELISP_NREPL_ADDR", "127.0.0.1:7889"),
		CompileFiles:        getEnvBool("CORELISP_COMPILE_FILES", false),
	}

	if paths := os.Getenv("CORELISP_SEARCH_PATH"); paths != "" {
		cfg.SearchPaths = splitSearchPath(paths)
	} else {
		cfg.SearchPaths = []string{"."}
	}

	cfg.IncrementalCacheTTL = 0
	if ttlStr := os.Getenv("CORELISP_INCREMENTAL_CACHE_TTL_SECONDS"); ttlStr != "" {
		if secs, err := strconv.Atoi(ttlStr); err == nil && secs > 0 {
			cfg.IncrementalCacheTTL = time.Duration(secs) * time.Second
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitSearchPath(paths string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(paths); i++ {
		if i == len(paths) || paths[i] == ':' {
			if i > start {
				out = append(out, paths[start:i])
			}
			start = i + 1
		}
	}
	return out
}
