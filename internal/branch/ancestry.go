package branch

import (
	"context"
	"fmt"

	"github.com/cheese-zj/forktree/internal/convo"
	"github.com/cheese-zj/forktree/internal/registry"
)

// AncestorEntry is one conversation above the current one.
type AncestorEntry struct {
	ConversationID string                `json:"conversationId"`
	Title          string                `json:"title"`
	ChildBranchID  string                `json:"childBranchId"` // the fork taken from this ancestor
	Record         registry.BranchRecord `json:"branchRecord"`
	Conversation   *convo.Conversation   `json:"-"`
}

// ResolveAncestry walks from id up to its root and returns the ancestors
// root first. The walk is sequential since each hop needs the id found by the
// previous one.
//
// When the walk stops early, stop explains why (ErrCycle or a fetch error)
// and chain holds the ancestors collected below that point; chain is usable
// either way. An id with no parent in reg yields an empty chain and nil stop.
func ResolveAncestry(ctx context.Context, f convo.Fetcher, reg registry.Registry, id string) (chain []AncestorEntry, stop error) {
	idx := reg.ParentIndex()
	visited := map[string]bool{id: true}

	cur := id
	for {
		edge, ok := idx[cur]
		if !ok {
			break
		}
		if visited[edge.ParentID] {
			stop = fmt.Errorf("%w: %s reached twice", ErrCycle, edge.ParentID)
			break
		}
		visited[edge.ParentID] = true

		parent, err := f.Fetch(ctx, edge.ParentID)
		if err != nil {
			stop = err
			break
		}
		chain = append(chain, AncestorEntry{
			ConversationID: edge.ParentID,
			Title:          reg.Title(edge.ParentID, parent.Title),
			ChildBranchID:  cur,
			Record:         edge.Record,
			Conversation:   parent,
		})
		cur = edge.ParentID
	}

	// collected nearest first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, stop
}
