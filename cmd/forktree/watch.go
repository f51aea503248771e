package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cheese-zj/forktree/internal/branch"
	"github.com/cheese-zj/forktree/internal/convo"
	"github.com/cheese-zj/forktree/internal/registry"
	"github.com/cheese-zj/forktree/internal/tui"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <conversationId>",
		Short: "Keep the branch tree of a conversation up to date in the terminal",
		Long: `Shows the branch tree and rebuilds it when asked (r), when the registry
changes and, debounced, when the conversation file is rewritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("watch needs a terminal; use 'forktree tree %s' instead", args[0])
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			// keep build warnings out of the alternate screen
			a.logger.SetOutput(io.Discard)

			return tui.Run(cmd.Context(), tui.Options{
				ConversationID: args[0],
				Refresher:      branch.NewRefresher(a.service()),
				Probe:          storeProbe{store: a.store, dir: a.dir},
				Invalidate:     a.fetcher.Purge,
				Poll:           time.Duration(a.cfg.PollSeconds) * time.Second,
				Debounce:       time.Duration(a.cfg.DebounceMillis) * time.Millisecond,
			})
		},
	}
}

// storeProbe stamps the registry blob by content and the conversation file by
// modification time.
type storeProbe struct {
	store registry.Store
	dir   *convo.DirFetcher
}

func (p storeProbe) RegistryStamp(ctx context.Context) (uint64, error) {
	data, err := p.store.Get(ctx, registry.RegistryKey)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func (p storeProbe) ConversationStamp(ctx context.Context, id string) (time.Time, error) {
	info, err := os.Stat(p.dir.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
