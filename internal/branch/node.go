package branch

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Kind tags the variant a Node carries.
type Kind string

const (
	KindMessage       Kind = "message"
	KindBranch        Kind = "branch"
	KindNestedPreview Kind = "nested"
	KindTitle         Kind = "title"
)

// Node is one row of the built sequence. The header fields are shared by
// every kind; Fork is set for KindBranch and KindNestedPreview, Title for
// KindTitle, and neither for KindMessage.
type Node struct {
	ID         string  `json:"id"`
	Kind       Kind    `json:"kind"`
	Depth      int     `json:"depth"`
	CreateTime float64 `json:"createTime"`
	Color      *int    `json:"colorIndex,omitempty"`
	Text       string  `json:"text"`

	Fork  *Fork      `json:"fork,omitempty"`
	Title *TitleInfo `json:"title,omitempty"`

	// set by Annotate
	IsTerminal     bool `json:"isTerminal"`
	HasPrevContext bool `json:"hasPrevContext"`
	HasNextContext bool `json:"hasNextContext"`
}

// Fork is the payload of fork markers and nested previews.
type Fork struct {
	TargetConversationID string `json:"targetConversationId"`
	BranchPath           string `json:"branchPath"`
	BranchIndex          int    `json:"branchIndex"`
	Expanded             bool   `json:"expanded"`
	IsViewing            bool   `json:"isViewing"`
	IsCurrentPath        bool   `json:"isCurrentPath"`
	// ForkRoot marks the synthetic marker pointing back at the parent of a
	// conversation whose ancestry could not be walked.
	ForkRoot     bool   `json:"forkRoot,omitempty"`
	FirstMessage string `json:"firstMessage,omitempty"`
	ParentColor  *int   `json:"parentColorIndex,omitempty"`
	Nested       []Node `json:"nestedBranches,omitempty"`
}

type TitleInfo struct {
	ConversationID string `json:"conversationId"`
	IsMainViewing  bool   `json:"isMainViewing"`
}

// IsCollapsedFork reports whether n is a fork marker that is not expanded.
func (n Node) IsCollapsedFork() bool {
	return n.Kind == KindBranch && n.Fork != nil && !n.Fork.Expanded
}

// contextKey identifies the visual chain a node belongs to.
type contextKey struct {
	depth int
	color int // -1 for the main line
}

func (n Node) context() contextKey {
	k := contextKey{depth: n.Depth, color: -1}
	if n.Color != nil {
		k.color = *n.Color
	}
	return k
}

// Output is what a build hands to a renderer.
type Output struct {
	ConversationID string `json:"conversationId"`
	Title          string `json:"title"`
	Nodes          []Node `json:"nodes"`
	HasAncestry    bool   `json:"hasAncestry"`
}

// Signature hashes everything a renderer would draw. Two outputs with the same
// signature render identically, so a caller can drop a result that matches
// the one already applied.
func (o Output) Signature() uint64 {
	d := xxhash.New()
	d.WriteString(o.ConversationID)
	d.WriteString("\x00")
	d.WriteString(o.Title)
	if o.HasAncestry {
		d.WriteString("\x01")
	}
	writeNodes(d, o.Nodes)
	return d.Sum64()
}

func writeNodes(d *xxhash.Digest, nodes []Node) {
	for _, n := range nodes {
		d.WriteString("\x1e")
		d.WriteString(n.ID)
		d.WriteString(string(n.Kind))
		d.WriteString(strconv.Itoa(n.Depth))
		d.WriteString(strconv.FormatFloat(n.CreateTime, 'f', -1, 64))
		if n.Color != nil {
			d.WriteString("c" + strconv.Itoa(*n.Color))
		}
		d.WriteString(n.Text)
		d.WriteString(flags(n.IsTerminal, n.HasPrevContext, n.HasNextContext))
		if n.Fork != nil {
			d.WriteString(n.Fork.TargetConversationID)
			d.WriteString(n.Fork.BranchPath)
			d.WriteString(flags(n.Fork.Expanded, n.Fork.IsViewing, n.Fork.IsCurrentPath, n.Fork.ForkRoot))
			writeNodes(d, n.Fork.Nested)
		}
		if n.Title != nil {
			d.WriteString(n.Title.ConversationID)
			d.WriteString(flags(n.Title.IsMainViewing))
		}
	}
}

func flags(bs ...bool) string {
	buf := make([]byte, len(bs))
	for i, b := range bs {
		buf[i] = '0'
		if b {
			buf[i] = '1'
		}
	}
	return string(buf)
}

func intPtr(v int) *int {
	return &v
}
