package branch

import (
	"strings"
	"testing"

	"github.com/cheese-zj/forktree/internal/convo"
)

func TestUserMessagesFiltersAndSorts(t *testing.T) {
	t.Parallel()

	c := conversation("c", "t",
		user("late", "second", 200),
		user("early", "  first  ", 100),
		user("blank", "   ", 150),
		user("ctx", InternalMessagePrefix+" parent summary", 50),
		msg{id: "bot", role: "assistant", text: "reply", ts: 120},
		msg{id: "sys", role: "system", text: "setup", ts: 10},
		user("ms", "millis", 1_700_000_000_000),
	)
	c.Mapping["empty-node"] = convo.Node{Children: []string{"early"}}

	got := UserMessages(c.Mapping, nil)
	var texts []string
	for _, m := range got {
		texts = append(texts, m.Text)
	}
	want := []string{"first", "second", "millis"}
	if !equalStrings(texts, want) {
		t.Fatalf("texts = %v, want %v", texts, want)
	}
	if got[2].CreateTime != 1_700_000_000 {
		t.Errorf("millisecond timestamp not normalized: %v", got[2].CreateTime)
	}
	if got[0].Role != "user" || got[0].ID != "early" {
		t.Errorf("unexpected first message %+v", got[0])
	}
}

func TestUserMessagesExclusion(t *testing.T) {
	t.Parallel()

	c := conversation("c", "t",
		user("carry", "carried", 100),
		user("carry-ms", "carried in millis", 110_000_000_000_000/100),
		user("own", "own", 300),
		user("undated", "no time", 0),
	)
	exclude := TimeSet{100: {}, 1_100_000_000_000 / 1000: {}, 0: {}}

	got := UserMessages(c.Mapping, exclude)
	var texts []string
	for _, m := range got {
		texts = append(texts, m.Text)
	}
	want := []string{"no time", "own"}
	if !equalStrings(texts, want) {
		t.Fatalf("texts = %v, want %v", texts, want)
	}
}

func TestUserMessagesTieBreakIsDeterministic(t *testing.T) {
	t.Parallel()

	c := conversation("c", "t", user("b", "two", 5), user("a", "one", 5), user("c", "three", 5))
	for i := 0; i < 20; i++ {
		got := UserMessages(c.Mapping, nil)
		if got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
			t.Fatalf("run %d: order %s,%s,%s", i, got[0].ID, got[1].ID, got[2].ID)
		}
	}
}

func TestFirstUserMessage(t *testing.T) {
	t.Parallel()

	parent := conversation("p", "t", user("p1", "shared", 10))
	child := conversation("c", "t", user("p1", "shared", 10), user("c1", "new question", 20))

	exclude := TimeSet{}
	exclude.AddMessages(UserMessages(parent.Mapping, nil))

	first, ok := FirstUserMessage(child.Mapping, exclude)
	if !ok || !strings.Contains(first.Text, "new question") {
		t.Fatalf("first = %+v, ok=%v", first, ok)
	}

	if _, ok := FirstUserMessage(parent.Mapping, exclude); ok {
		t.Fatal("expected no first message when everything is excluded")
	}
}

func TestNormalizeTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{1_700_000_000, 1_700_000_000},
		{1e12, 1e12},
		{1_700_000_000_500, 1_700_000_000.5},
	}
	for _, tc := range tests {
		if got := NormalizeTime(tc.in); got != tc.want {
			t.Errorf("NormalizeTime(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
