package branch

import (
	"sort"

	"github.com/cheese-zj/forktree/internal/convo"
	"github.com/cheese-zj/forktree/internal/registry"
)

// TreeInput is everything one build reads. Registry is a snapshot taken once
// per build.
type TreeInput struct {
	ConversationID string
	Conversation   *convo.Conversation
	Ancestry       []AncestorEntry
	Registry       registry.Registry
}

type treeBuilder struct {
	in      TreeInput
	visited map[string]bool
}

// BuildTree merges ancestors, the current conversation and every fork point
// into one ordered sequence. The first node is always the title of the root
// conversation.
func BuildTree(in TreeInput) []Node {
	b := &treeBuilder{in: in, visited: map[string]bool{in.ConversationID: true}}
	for _, a := range in.Ancestry {
		b.visited[a.ConversationID] = true
	}

	if len(in.Ancestry) == 0 {
		return b.buildRoot()
	}
	return b.buildBranched()
}

func (b *treeBuilder) buildRoot() []Node {
	id := b.in.ConversationID
	msgs := messageNodes(UserMessages(b.mapping(b.in.Conversation), nil), 0, nil)
	markers := b.forkMarkers(id, 1, "", "", "")
	body := mergeByTime(msgs, markers)

	// a conversation listed as a fork whose parent could not be walked still
	// points back at that parent
	edge, isChild := b.in.Registry.ParentIndex()[id]
	if isChild {
		body = append([]Node{b.forkRootNode(edge, msgs)}, body...)
	}

	title := Node{
		ID:    "title:" + id,
		Kind:  KindTitle,
		Depth: 0,
		Text:  b.conversationTitle(),
		Title: &TitleInfo{ConversationID: id, IsMainViewing: !isChild},
	}
	return append([]Node{title}, body...)
}

func (b *treeBuilder) forkRootNode(edge registry.Edge, msgs []Node) Node {
	ts := NormalizeTime(edge.Record.CreatedAt)
	// keep the main line non-decreasing when carry-over messages predate the fork
	if len(msgs) > 0 && msgs[0].CreateTime < ts {
		ts = msgs[0].CreateTime
	}
	return Node{
		ID:         "fork-root:" + edge.ParentID,
		Kind:       KindBranch,
		Depth:      0,
		CreateTime: ts,
		Text:       b.in.Registry.Title(edge.ParentID, "Parent conversation"),
		Fork: &Fork{
			TargetConversationID: edge.ParentID,
			ForkRoot:             true,
		},
	}
}

type deferred struct {
	node Node
	seq  int
}

func (b *treeBuilder) buildBranched() []Node {
	chain := b.in.Ancestry
	current := b.in.ConversationID

	var (
		out       []Node
		post      []deferred
		inherited *int
		prefix    string
	)
	emitted := TimeSet{}

	for level, anc := range chain {
		next := current
		if level+1 < len(chain) {
			next = chain[level+1].ConversationID
		}

		raw := UserMessages(b.mapping(anc.Conversation), emitted)
		var msgColor *int
		if level > 0 {
			msgColor = inherited
		}
		msgs := messageNodes(raw, level, msgColor)
		markers := b.forkMarkers(anc.ConversationID, level+1, prefix, next, current)
		merged := mergeByTime(msgs, markers)

		var expanded *Node
		for i := range merged {
			if merged[i].Kind == KindBranch && merged[i].Fork.Expanded {
				expanded = &merged[i]
				break
			}
		}

		// the host carries messages sent after a fork point into the child,
		// so anything later than the fork surfaces after all descendant content
		for _, n := range merged {
			if expanded != nil && n.ID != expanded.ID && n.CreateTime > expanded.CreateTime {
				post = append(post, deferred{node: n, seq: len(post)})
				continue
			}
			out = append(out, n)
		}

		emitted.AddMessages(raw)
		if expanded != nil {
			inherited = expanded.Color
			prefix = expanded.Fork.BranchPath
		} else {
			inherited = intPtr(ColorIndex(next))
		}
	}

	depth := len(chain)
	own := messageNodes(UserMessages(b.mapping(b.in.Conversation), emitted), depth, inherited)
	ownMarkers := b.forkMarkers(current, depth+1, prefix, "", "")
	out = append(out, mergeByTime(own, ownMarkers)...)

	sort.SliceStable(post, func(i, j int) bool {
		if post[i].node.CreateTime != post[j].node.CreateTime {
			return post[i].node.CreateTime < post[j].node.CreateTime
		}
		return post[i].seq < post[j].seq
	})
	for _, d := range post {
		n := d.node
		if n.Depth == 0 {
			n.Color = nil
		}
		out = append(out, n)
	}

	root := chain[0]
	title := Node{
		ID:    "title:" + root.ConversationID,
		Kind:  KindTitle,
		Depth: 0,
		Text:  root.Title,
		Title: &TitleInfo{ConversationID: root.ConversationID},
	}
	return append([]Node{title}, out...)
}

// forkMarkers lists parentID's forks oldest first. The fork whose target is
// expandTarget is expanded and marked as the current path; it is also the
// viewed fork when that target is viewingID. Every other fork gets nested
// previews of its own descendants.
func (b *treeBuilder) forkMarkers(parentID string, depth int, prefix, expandTarget, viewingID string) []Node {
	reg := b.in.Registry
	recs := reg.Children(parentID)
	markers := make([]Node, 0, len(recs))

	for i, rec := range recs {
		path := joinPath(prefix, i+1)
		color := intPtr(ColorIndex(rec.ChildID))
		expanded := expandTarget != "" && rec.ChildID == expandTarget

		n := Node{
			ID:         "branch:" + rec.ChildID,
			Kind:       KindBranch,
			Depth:      depth,
			CreateTime: NormalizeTime(rec.CreatedAt),
			Color:      color,
			Text:       forkLabel(reg, rec),
			Fork: &Fork{
				TargetConversationID: rec.ChildID,
				BranchPath:           path,
				BranchIndex:          i + 1,
				Expanded:             expanded,
				IsViewing:            expanded && rec.ChildID == viewingID,
				IsCurrentPath:        expanded,
				FirstMessage:         rec.FirstMessage,
			},
		}
		if !expanded && !b.visited[rec.ChildID] {
			b.visited[rec.ChildID] = true
			n.Fork.Nested = CollectNested(reg, rec.ChildID, depth+1, path, color, b.visited)
		}
		markers = append(markers, n)
	}
	return markers
}

func (b *treeBuilder) mapping(c *convo.Conversation) map[string]convo.Node {
	if c == nil {
		return nil
	}
	return c.Mapping
}

func (b *treeBuilder) conversationTitle() string {
	fallback := ""
	if b.in.Conversation != nil {
		fallback = b.in.Conversation.Title
	}
	return b.in.Registry.Title(b.in.ConversationID, fallback)
}

func messageNodes(msgs []RawMessage, depth int, color *int) []Node {
	nodes := make([]Node, 0, len(msgs))
	for _, m := range msgs {
		nodes = append(nodes, Node{
			ID:         m.ID,
			Kind:       KindMessage,
			Depth:      depth,
			CreateTime: m.CreateTime,
			Color:      color,
			Text:       m.Text,
		})
	}
	return nodes
}

// mergeByTime merges two time-sorted lists. On equal timestamps messages come
// before markers.
func mergeByTime(msgs, markers []Node) []Node {
	out := make([]Node, 0, len(msgs)+len(markers))
	i, j := 0, 0
	for i < len(msgs) && j < len(markers) {
		if msgs[i].CreateTime <= markers[j].CreateTime {
			out = append(out, msgs[i])
			i++
		} else {
			out = append(out, markers[j])
			j++
		}
	}
	out = append(out, msgs[i:]...)
	return append(out, markers[j:]...)
}
