package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cheese-zj/forktree/internal/registry"
)

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget every recorded fork and the pending fork signal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := registry.Clear(cmd.Context(), a.store); err != nil {
				return err
			}
			if err := a.store.Delete(cmd.Context(), registry.PendingForkKey); err != nil {
				return fmt.Errorf("clear pending fork: %w", err)
			}
			fmt.Fprintln(os.Stderr, "Registry cleared.")
			return nil
		},
	}
}
