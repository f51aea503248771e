package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cheese-zj/forktree/internal/outline"
)

func treeCmd() *cobra.Command {
	var asJSON bool
	var width int

	cmd := &cobra.Command{
		Use:   "tree <conversationId>",
		Short: "Print the branch tree of a conversation",
		Long: `Builds the branch view of a conversation: its ancestors, the fork points
along the way and every sibling fork. Prints an outline on a terminal and JSON
when piped or with --json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.service().Build(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			isTTY := term.IsTerminal(int(os.Stdout.Fd()))
			if asJSON || !isTTY {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			if width == 0 {
				if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
					width = w
				}
			}
			fmt.Print(outline.Render(out, outline.Options{Width: width, Color: true, Truncate: true}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the node sequence as JSON")
	cmd.Flags().IntVar(&width, "width", 0, "Truncate rows to this many columns (0 = terminal width)")

	return cmd
}
