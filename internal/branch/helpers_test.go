package branch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cheese-zj/forktree/internal/convo"
	"github.com/cheese-zj/forktree/internal/registry"
)

type msg struct {
	id   string
	role string
	text string
	ts   float64
}

func user(id, text string, ts float64) msg {
	return msg{id: id, role: "user", text: text, ts: ts}
}

func conversation(id, title string, msgs ...msg) *convo.Conversation {
	c := &convo.Conversation{ID: id, Title: title, Mapping: map[string]convo.Node{}}
	for _, m := range msgs {
		content, _ := json.Marshal(m.text)
		ts := m.ts
		c.Mapping[m.id] = convo.Node{
			Message: &convo.Message{
				Author:     convo.Author{Role: m.role},
				Content:    content,
				CreateTime: &ts,
			},
		}
	}
	return c
}

// mapFetcher serves conversations from memory; ids in fail return a FetchError.
type mapFetcher struct {
	convs map[string]*convo.Conversation
	fail  map[string]bool
	calls map[string]int
}

func newMapFetcher(convs ...*convo.Conversation) *mapFetcher {
	f := &mapFetcher{
		convs: map[string]*convo.Conversation{},
		fail:  map[string]bool{},
		calls: map[string]int{},
	}
	for _, c := range convs {
		f.convs[c.ID] = c
	}
	return f
}

func (f *mapFetcher) Fetch(ctx context.Context, id string) (*convo.Conversation, error) {
	f.calls[id]++
	if f.fail[id] {
		return nil, &convo.FetchError{ConversationID: id, Err: errors.New("unavailable")}
	}
	c, ok := f.convs[id]
	if !ok {
		return nil, &convo.FetchError{ConversationID: id, Err: errors.New("not found")}
	}
	return c, nil
}

// fixture is a three-level tree:
//
//	root ─┬─ sib (150)
//	      └─ mid (200) ─┬─ side (300) ── side-child (320)
//	                    └─ leaf (350) ── A (390)
//
// Children repeat their parent's messages up to the fork point.
func fixture() (*mapFetcher, registry.Registry) {
	reg := registry.New()
	reg.AddBranch("root", registry.BranchRecord{ChildID: "mid", Title: "Mid", CreatedAt: 200})
	reg.AddBranch("root", registry.BranchRecord{ChildID: "sib", Title: "Sibling", CreatedAt: 150})
	reg.AddBranch("mid", registry.BranchRecord{ChildID: "leaf", Title: "Leaf", CreatedAt: 350})
	reg.AddBranch("mid", registry.BranchRecord{ChildID: "side", Title: "Side", CreatedAt: 300})
	reg.AddBranch("side", registry.BranchRecord{ChildID: "side-child", Title: "Side child", CreatedAt: 320})
	reg.AddBranch("leaf", registry.BranchRecord{ChildID: "A", Title: "", FirstMessage: "what about A", CreatedAt: 390})

	r1 := user("r1", "hello", 100)
	r2 := user("r2", "plan a trip", 180)
	r3 := user("r3", "after mid fork", 250)
	m1 := user("m1", "mid one", 210)
	m2 := user("m2", "mid two", 260)
	m3 := user("m3", "after leaf fork", 360)

	f := newMapFetcher(
		conversation("root", "Root", r1, r2, r3,
			msg{id: "r1a", role: "assistant", text: "hi", ts: 101}),
		conversation("mid", "Mid", r1, r2, m1, m2, m3),
		conversation("leaf", "Leaf", r1, r2, m1, m2,
			user("l1", "leaf one", 370), user("l2", "leaf two", 380)),
		conversation("sib", "Sibling", r1, user("s1", "sib one", 160)),
		conversation("side", "Side", r1, r2, m1, m2, user("x1", "side one", 310)),
		conversation("A", "", user("a1", "what about A", 395)),
	)
	return f, reg
}

func ids(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func findNode(t *testing.T, nodes []Node, id string) Node {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found in %v", id, ids(nodes))
	return Node{}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// assertContextOrder checks that within every (depth, color) context the
// timestamps never decrease.
func assertContextOrder(t *testing.T, nodes []Node) {
	t.Helper()
	last := map[contextKey]float64{}
	for _, n := range nodes {
		k := n.context()
		if prev, ok := last[k]; ok && n.CreateTime < prev {
			t.Fatalf("node %s at %v goes back in time within depth=%d color=%d (prev %v)",
				n.ID, n.CreateTime, k.depth, k.color, prev)
		}
		last[k] = n.CreateTime
	}
}
