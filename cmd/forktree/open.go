package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cheese-zj/forktree/internal/config"
	"github.com/cheese-zj/forktree/internal/convo"
	"github.com/cheese-zj/forktree/internal/open"
)

func openCmd() *cobra.Command {
	var messageID string

	cmd := &cobra.Command{
		Use:   "open <conversationId>",
		Short: "Open the conversation file in $EDITOR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.ContainsAny(args[0], `/\`) {
				return fmt.Errorf("invalid conversation id %q", args[0])
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return open.Conversation(convo.NewDirFetcher(cfg.ConversationsDir).Path(args[0]), messageID)
		},
	}

	cmd.Flags().StringVar(&messageID, "message", "", "Message id to jump to")

	return cmd
}
