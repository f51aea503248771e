package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cheese-zj/forktree/internal/branch"
	"github.com/cheese-zj/forktree/internal/convo"
	"github.com/cheese-zj/forktree/internal/registry"
)

func linkCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "link <parentId> <childId>",
		Short: "Record a fork relationship by hand",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := forkRecord(cmd.Context(), a.fetcher, args[0], args[1], title)
			if err != nil {
				return err
			}
			if err := link(cmd.Context(), a.store, args[0], rec); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Linked %s -> %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Fork title (default: the child's title)")

	return cmd
}

// forkRecord describes childID as a fork of parentID. The fork time is the
// child's first message that the parent does not have, or now when there is
// none.
func forkRecord(ctx context.Context, f convo.Fetcher, parentID, childID, title string) (registry.BranchRecord, error) {
	child, err := f.Fetch(ctx, childID)
	if err != nil {
		return registry.BranchRecord{}, err
	}

	exclude := branch.TimeSet{}
	if parent, err := f.Fetch(ctx, parentID); err == nil {
		exclude.AddMessages(branch.UserMessages(parent.Mapping, nil))
	} else {
		fmt.Fprintf(os.Stderr, "WARN: %v\n", err)
	}

	if title == "" {
		title = child.Title
	}
	rec := registry.BranchRecord{
		ChildID:   childID,
		Title:     title,
		CreatedAt: float64(time.Now().UnixMilli()) / 1000,
	}
	if first, ok := branch.FirstUserMessage(child.Mapping, exclude); ok {
		rec.FirstMessage = first.Text
		if first.CreateTime > 0 {
			rec.CreatedAt = first.CreateTime
		}
	}
	return rec, nil
}

// link adds rec under parentID, refusing anything that would leave the
// registry with a child claimed twice or a cycle.
func link(ctx context.Context, s registry.Store, parentID string, rec registry.BranchRecord) error {
	if parentID == rec.ChildID {
		return fmt.Errorf("link: %s cannot fork from itself", parentID)
	}
	_, err := registry.Update(ctx, s, func(reg *registry.Registry) error {
		if edge, ok := reg.FindParent(rec.ChildID); ok {
			return fmt.Errorf("link: %s is already a fork of %s", rec.ChildID, edge.ParentID)
		}
		before := len(reg.Check())
		reg.AddBranch(parentID, rec)
		if rec.Title != "" {
			reg.SetTitle(rec.ChildID, rec.Title)
		}
		if problems := reg.Check(); len(problems) > before {
			return fmt.Errorf("link: %s", strings.Join(problems, "; "))
		}
		return nil
	})
	return err
}
