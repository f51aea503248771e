package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func forkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fork <parentId>",
		Short: "Record that a fork of a conversation was just created",
		Long: `Records a pending fork of the parent conversation. The next conversation
built with 'forktree tree' or 'forktree watch' within the expiry window is linked
as its child.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.fetcher.Fetch(cmd.Context(), args[0]); err != nil {
				fmt.Fprintf(os.Stderr, "WARN: %v\n", err)
			}
			if err := a.pending().Record(cmd.Context(), args[0]); err != nil {
				return err
			}

			expiry := time.Duration(a.cfg.PendingExpirySeconds) * time.Second
			fmt.Fprintf(os.Stderr, "Recorded fork of %s; the next new conversation within %s becomes its child.\n", args[0], expiry)
			return nil
		},
	}
}
