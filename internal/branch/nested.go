package branch

import (
	"strconv"

	"github.com/cheese-zj/forktree/internal/registry"
)

// CollectNested returns compact preview rows for every fork below targetID,
// depth first. Each row gets the color of its own conversation and a path
// extending parentPath by its 1-based position among its siblings. Children
// already in visited are skipped; the rest are added to it.
func CollectNested(reg registry.Registry, targetID string, depth int, parentPath string, parentColor *int, visited map[string]bool) []Node {
	var out []Node
	for i, rec := range reg.Children(targetID) {
		if visited[rec.ChildID] {
			continue
		}
		visited[rec.ChildID] = true

		color := intPtr(ColorIndex(rec.ChildID))
		path := joinPath(parentPath, i+1)
		out = append(out, Node{
			ID:         "nested:" + rec.ChildID,
			Kind:       KindNestedPreview,
			Depth:      depth,
			CreateTime: NormalizeTime(rec.CreatedAt),
			Color:      color,
			Text:       forkLabel(reg, rec),
			Fork: &Fork{
				TargetConversationID: rec.ChildID,
				BranchPath:           path,
				BranchIndex:          i + 1,
				FirstMessage:         rec.FirstMessage,
				ParentColor:          parentColor,
			},
		})
		out = append(out, CollectNested(reg, rec.ChildID, depth+1, path, color, visited)...)
	}
	return out
}

func joinPath(prefix string, index int) string {
	if prefix == "" {
		return strconv.Itoa(index)
	}
	return prefix + "." + strconv.Itoa(index)
}

// forkLabel prefers the registry's current title for the child, then the
// title stored with the fork, then its first message.
func forkLabel(reg registry.Registry, rec registry.BranchRecord) string {
	if t := reg.Title(rec.ChildID, rec.Title); t != "" {
		return t
	}
	if rec.FirstMessage != "" {
		return rec.FirstMessage
	}
	return "Branch"
}
