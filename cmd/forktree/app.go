package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cheese-zj/forktree/internal/branch"
	"github.com/cheese-zj/forktree/internal/config"
	"github.com/cheese-zj/forktree/internal/convo"
	"github.com/cheese-zj/forktree/internal/registry"
)

// app holds what every subcommand opens: the config, the registry store and
// a cached conversation fetcher.
type app struct {
	cfg     *config.Config
	store   registry.Store
	dir     *convo.DirFetcher
	fetcher *convo.CachedFetcher
	logger  *log.Logger
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if w := backendWarning(cfg); w != "" {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", w)
	}
	dir := convo.NewDirFetcher(cfg.ConversationsDir)
	return &app{
		cfg:     cfg,
		store:   store,
		dir:     dir,
		fetcher: convo.NewCachedFetcher(dir, cfg.CacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second),
		logger:  log.New(os.Stderr, "", 0),
	}, nil
}

func openStore(cfg *config.Config) (registry.Store, error) {
	switch cfg.RegistryBackend {
	case config.BackendRedis:
		s, err := registry.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis registry: %w", err)
		}
		return s, nil
	case config.BackendMemory:
		return registry.NewMemoryStore(), nil
	default:
		s, err := registry.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return s, nil
	}
}

// backendWarning explains a backend that cannot keep forks between
// invocations, or returns "".
func backendWarning(cfg *config.Config) string {
	if cfg.RegistryBackend != config.BackendMemory {
		return ""
	}
	return `registry_backend = "memory" keeps forks only while this process runs; ` +
		"fork, link and index are lost on exit (use it only with watch)"
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) pending() *branch.PendingForks {
	return branch.NewPendingForks(a.store, time.Duration(a.cfg.PendingExpirySeconds)*time.Second)
}

func (a *app) service() *branch.Service {
	return branch.NewService(branch.Options{
		Fetcher: a.fetcher,
		Store:   a.store,
		Pending: a.pending(),
		Logger:  a.logger,
	})
}
