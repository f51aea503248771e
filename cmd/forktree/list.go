package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cheese-zj/forktree/internal/registry"
	"github.com/cheese-zj/forktree/internal/scan"
)

const (
	sColorReset = "\033[0m"
	sColorBlue  = "\033[1;34m"
	sColorDim   = "\033[2m"
)

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations with their fork relationships",
		Long: `Lists every conversation file, newest first. Output is TSV:
  conversationId, modified, title, parent, forks`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := scan.ScanConversations(a.cfg.ConversationsDir)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if len(files) == 0 {
				fmt.Fprintf(os.Stderr, "No conversations in %s\n", a.cfg.ConversationsDir)
				return nil
			}

			reg := loadRegistry(cmd.Context(), a.store)
			parents := reg.ParentIndex()
			color := term.IsTerminal(int(os.Stdout.Fd()))

			// newest first; files arrive sorted by id
			sort.SliceStable(files, func(i, j int) bool { return files[i].Mtime > files[j].Mtime })

			for i, f := range files {
				if limit > 0 && i >= limit {
					break
				}
				parent := "-"
				if edge, ok := parents[f.ID]; ok {
					parent = edge.ParentID
				}
				title := strings.ReplaceAll(reg.Title(f.ID, ""), "\t", " ")
				if title == "" {
					title = "-"
				}
				modified := time.Unix(f.Mtime, 0).Format("2006-01-02 15:04")
				if color {
					modified = sColorDim + modified + sColorReset
					if parent != "-" {
						parent = sColorBlue + parent + sColorReset
					}
				}
				fmt.Printf("%s\t%s\t%s\t%s\t%d\n", f.ID, modified, title, parent, len(reg.Branches[f.ID]))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Max rows (0 = no limit)")

	return cmd
}

// loadRegistry reads the registry for display, warning on problems.
func loadRegistry(ctx context.Context, s registry.Store) registry.Registry {
	reg, err := registry.Load(ctx, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %v\n", err)
	}
	return reg
}
