package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cheese-zj/forktree/internal/branch"
	"github.com/cheese-zj/forktree/internal/config"
	"github.com/cheese-zj/forktree/internal/registry"
	"github.com/cheese-zj/forktree/internal/scan"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify the conversations directory and registry, and show stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Conversations ===")
			checkDir("Directory", cfg.ConversationsDir)
			files, err := scan.ScanConversations(cfg.ConversationsDir)
			if err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				fmt.Printf("  JSON files: %d\n", len(files))
			}

			fmt.Println("\n=== Registry ===")
			fmt.Printf("  Backend: %s\n", cfg.RegistryBackend)
			switch cfg.RegistryBackend {
			case config.BackendSQLite:
				fmt.Printf("  Path: %s\n", cfg.DBPath)
			case config.BackendRedis:
				fmt.Printf("  URL: %s\n", cfg.RedisURL)
			case config.BackendMemory:
				fmt.Printf("  WARN: %s\n", backendWarning(cfg))
			}

			store, err := openStore(cfg)
			if err != nil {
				fmt.Printf("  Status: UNAVAILABLE (%v)\n", err)
				return nil
			}
			defer store.Close()

			switch s := store.(type) {
			case *registry.SQLiteStore:
				if v, err := s.SchemaVersion(ctx); err == nil {
					fmt.Printf("  Schema version: %s\n", v)
				}
				if t, err := s.UpdatedAt(ctx, registry.RegistryKey); err == nil && !t.IsZero() {
					fmt.Printf("  Last write: %s\n", t.Format("2006-01-02 15:04:05"))
				}
			case *registry.RedisStore:
				if err := s.Ping(ctx); err != nil {
					fmt.Printf("  Ping: %v\n", err)
				} else {
					fmt.Println("  Ping: OK")
				}
			}

			reg, err := registry.Load(ctx, store)
			switch {
			case errors.Is(err, registry.ErrCorrupt):
				fmt.Printf("  Status: CORRUPT (%v); the next fork overwrites it\n", err)
			case err != nil:
				fmt.Printf("  Status: ERROR (%v)\n", err)
				return nil
			default:
				fmt.Println("  Status: OK")
			}

			forks := 0
			for _, recs := range reg.Branches {
				forks += len(recs)
			}
			fmt.Printf("  Parents: %d\n", len(reg.Parents()))
			fmt.Printf("  Forks:   %d\n", forks)
			fmt.Printf("  Titles:  %d\n", len(reg.Titles))

			fmt.Println("\n=== Integrity ===")
			if problems := reg.Check(); len(problems) == 0 {
				fmt.Println("  OK")
			} else {
				for _, p := range problems {
					fmt.Printf("  %s\n", p)
				}
			}

			fmt.Println("\n=== Pending fork ===")
			sig, ok, err := branch.NewPendingForks(store, time.Duration(cfg.PendingExpirySeconds)*time.Second).Peek(ctx)
			switch {
			case err != nil:
				fmt.Printf("  error: %v\n", err)
			case !ok:
				fmt.Println("  none")
			default:
				fmt.Printf("  parent %s at %.3f\n", sig.ParentID, sig.Timestamp)
			}

			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
