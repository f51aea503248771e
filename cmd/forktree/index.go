package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cheese-zj/forktree/internal/registry"
	"github.com/cheese-zj/forktree/internal/scan"
)

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Scan the conversations directory and record titles in the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(os.Stderr, "Scanning %s...\n", a.cfg.ConversationsDir)
			files, err := scan.ScanConversations(a.cfg.ConversationsDir)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			titles := map[string]string{}
			failed := 0
			for _, f := range files {
				c, err := a.dir.Fetch(cmd.Context(), f.ID)
				if err != nil {
					fmt.Fprintf(os.Stderr, "WARN: %v\n", err)
					failed++
					continue
				}
				if c.Title != "" {
					titles[f.ID] = c.Title
				}
			}

			updated := 0
			_, err = registry.Update(cmd.Context(), a.store, func(reg *registry.Registry) error {
				for id, t := range titles {
					if reg.SetTitle(id, t) {
						updated++
					}
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. files=%d titles_updated=%d failed=%d\n", len(files), updated, failed)
			return nil
		},
	}
}
