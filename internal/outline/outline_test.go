package outline

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/cheese-zj/forktree/internal/branch"
)

func ip(v int) *int { return &v }

func sample() branch.Output {
	return branch.Output{
		ConversationID: "child",
		Title:          "Child",
		HasAncestry:    true,
		Nodes: []branch.Node{
			{ID: "title:root", Kind: branch.KindTitle, Text: "Trip planning", Title: &branch.TitleInfo{ConversationID: "root"}},
			{ID: "m1", Kind: branch.KindMessage, Text: "where should\nwe go?", CreateTime: 1},
			{ID: "branch:other", Kind: branch.KindBranch, Depth: 1, Color: ip(3), Text: "Other", IsTerminal: true,
				Fork: &branch.Fork{TargetConversationID: "other", BranchPath: "1",
					Nested: []branch.Node{{ID: "nested:deep", Kind: branch.KindNestedPreview, Depth: 2, Color: ip(5), Text: "Deep", IsTerminal: true,
						Fork: &branch.Fork{TargetConversationID: "deep", BranchPath: "1.1"}}}}},
			{ID: "branch:child", Kind: branch.KindBranch, Depth: 1, Color: ip(7), Text: "Child",
				Fork: &branch.Fork{TargetConversationID: "child", BranchPath: "2", Expanded: true, IsViewing: true, IsCurrentPath: true}},
			{ID: "c1", Kind: branch.KindMessage, Depth: 1, Color: ip(7), Text: "and the beach?", IsTerminal: true},
		},
	}
}

func TestLines(t *testing.T) {
	t.Parallel()

	got := Lines(sample().Nodes, Options{})
	want := []string{
		"Trip planning",
		"├─ where should we go?",
		"│  └─ ⑂ 1 Other",
		"│  │  └─ · 1.1 Deep",
		"│  ├─ ⑂ 2 Child ◀",
		"│  └─ and the beach?",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(got), strings.Join(got, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLinesForkRootAndMainTitle(t *testing.T) {
	t.Parallel()

	nodes := []branch.Node{
		{ID: "title:c", Kind: branch.KindTitle, Text: "C", Title: &branch.TitleInfo{ConversationID: "c", IsMainViewing: true}},
		{ID: "fork-root:p", Kind: branch.KindBranch, Text: "Parent", IsTerminal: true, Fork: &branch.Fork{TargetConversationID: "p", ForkRoot: true}},
	}
	got := Lines(nodes, Options{})
	if got[0] != "C (viewing)" || got[1] != "└─ ↰ forked from Parent" {
		t.Fatalf("lines = %q", got)
	}
}

func TestLinesTruncate(t *testing.T) {
	t.Parallel()

	for _, l := range Lines(sample().Nodes, Options{Width: 12, Truncate: true}) {
		if w := runewidth.StringWidth(l); w > 12 {
			t.Errorf("%q is %d columns wide", l, w)
		}
	}
}

func TestWrapLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		width int
		want  []string
	}{
		{"abcdef", 0, []string{"abcdef"}},
		{"abcdef", 4, []string{"abcd", "ef"}},
		{"", 4, []string{""}},
		{"\033[1mabcdef\033[0m", 3, []string{"\033[1mabc", "def\033[0m"}},
		{"日本語", 4, []string{"日本", "語"}},
	}
	for _, tc := range tests {
		got := wrapLine(tc.in, tc.width)
		if strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Errorf("wrapLine(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestRenderEndsRowsWithNewline(t *testing.T) {
	t.Parallel()

	out := Render(sample(), Options{Color: true})
	if n := strings.Count(out, "\n"); n != 6 {
		t.Fatalf("rendered %d rows", n)
	}
	if !strings.Contains(out, "Deep") {
		t.Fatal("nested preview missing")
	}
}
