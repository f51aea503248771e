package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	ConversationsDir     string `toml:"conversations_dir"`
	DBPath               string `toml:"db_path"`
	RegistryBackend      string `toml:"registry_backend"` // "sqlite", "redis" or "memory"
	RedisURL             string `toml:"redis_url"`
	CacheSize            int    `toml:"cache_size"`
	CacheTTLSeconds      int    `toml:"cache_ttl_seconds"`
	PendingExpirySeconds int    `toml:"pending_expiry_seconds"`
	DebounceMillis       int    `toml:"debounce_millis"`
	PollSeconds          int    `toml:"poll_seconds"`
}

// Default returns the configuration used when no config file exists.
func Default(home string) *Config {
	return &Config{
		ConversationsDir:     filepath.Join(home, ".config", "forktree", "conversations"),
		DBPath:               filepath.Join(home, ".config", "forktree", "forktree.db"),
		RegistryBackend:      BackendSQLite,
		RedisURL:             "redis://localhost:6379/0",
		CacheSize:            64,
		CacheTTLSeconds:      30,
		PendingExpirySeconds: 120,
		DebounceMillis:       300,
		PollSeconds:          2,
	}
}

// Load reads ~/.config/forktree/config.toml, or the file named by
// FORKTREE_CONFIG, on top of the defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfgPath := os.Getenv("FORKTREE_CONFIG")
	if cfgPath == "" {
		cfgPath = filepath.Join(home, ".config", "forktree", "config.toml")
	}
	return LoadFrom(cfgPath, home)
}

// LoadFrom is Load with an explicit config path and home directory.
// A missing file is not an error.
func LoadFrom(cfgPath, home string) (*Config, error) {
	cfg := Default(home)
	defaults := *cfg

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	// expand ~ in paths
	cfg.ConversationsDir = expandHome(cfg.ConversationsDir, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)

	switch cfg.RegistryBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("config %s: unknown registry_backend %q", cfgPath, cfg.RegistryBackend)
	}

	// non-positive numbers fall back to defaults
	positiveOr(&cfg.CacheSize, defaults.CacheSize)
	positiveOr(&cfg.CacheTTLSeconds, defaults.CacheTTLSeconds)
	positiveOr(&cfg.PendingExpirySeconds, defaults.PendingExpirySeconds)
	positiveOr(&cfg.DebounceMillis, defaults.DebounceMillis)
	positiveOr(&cfg.PollSeconds, defaults.PollSeconds)

	return cfg, nil
}

func positiveOr(v *int, fallback int) {
	if *v <= 0 {
		*v = fallback
	}
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
