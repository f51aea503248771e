package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cheese-zj/forktree/internal/branch"
)

type fakeBuilder struct {
	out    branch.Output
	builds int
}

func (b *fakeBuilder) Build(ctx context.Context, id string) (branch.Output, error) {
	b.builds++
	out := b.out
	out.ConversationID = id
	return out, nil
}

func output(text string) branch.Output {
	return branch.Output{
		Title: "T",
		Nodes: []branch.Node{
			{ID: "title:x", Kind: branch.KindTitle, Text: "T", Title: &branch.TitleInfo{ConversationID: "x"}},
			{ID: "m", Kind: branch.KindMessage, Text: text, IsTerminal: true},
		},
	}
}

func testModel(b *fakeBuilder) model {
	m := newModel(context.Background(), Options{
		ConversationID: "x",
		Refresher:      branch.NewRefresher(b),
		Poll:           time.Millisecond,
		Debounce:       time.Millisecond,
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	return next.(model)
}

// run executes cmd and any batched commands, returning every message produced.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func buildResults(msgs []tea.Msg) []buildResultMsg {
	var out []buildResultMsg
	for _, msg := range msgs {
		if r, ok := msg.(buildResultMsg); ok {
			out = append(out, r)
		}
	}
	return out
}

func TestBuildResultAppliedOnce(t *testing.T) {
	t.Parallel()

	m := testModel(&fakeBuilder{})
	next, _ := m.Update(buildResultMsg{reason: branch.ReasonRefresh, out: output("hello")})
	m = next.(model)
	if !m.hasOutput || !strings.Contains(m.viewport.View(), "hello") {
		t.Fatalf("result not applied: %q", m.viewport.View())
	}
	sig := m.applied

	next, _ = m.Update(buildResultMsg{reason: branch.ReasonObserve, out: output("hello")})
	m = next.(model)
	if m.applied != sig || !strings.Contains(m.status, "unchanged") {
		t.Fatalf("identical result should be dropped, status %q", m.status)
	}

	next, _ = m.Update(buildResultMsg{reason: branch.ReasonDebounce, out: output("changed")})
	m = next.(model)
	if m.applied == sig || !strings.Contains(m.viewport.View(), "changed") {
		t.Fatal("a different result should replace the view")
	}
}

func TestBuildInFlightIsDropped(t *testing.T) {
	t.Parallel()

	m := testModel(&fakeBuilder{})
	next, _ := m.Update(buildResultMsg{reason: branch.ReasonObserve, err: branch.ErrBuildInFlight})
	m = next.(model)
	if m.hasOutput || m.warn || !strings.Contains(m.status, "dropped") {
		t.Fatalf("status = %q warn=%v", m.status, m.warn)
	}
}

func TestRefreshKeyBuilds(t *testing.T) {
	t.Parallel()

	b := &fakeBuilder{out: output("hi")}
	m := testModel(b)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	results := buildResults(run(cmd))
	if len(results) != 1 || results[0].reason != branch.ReasonRefresh || results[0].out.ConversationID != "x" {
		t.Fatalf("results = %+v", results)
	}
	if b.builds != 1 {
		t.Fatalf("builds = %d", b.builds)
	}
}

func TestChangeTriggers(t *testing.T) {
	t.Parallel()

	b := &fakeBuilder{out: output("hi")}
	m := testModel(b)
	t0 := time.Unix(100, 0)

	// the first probe only sets the baseline
	next, cmd := m.Update(probedMsg{registry: 1, convo: t0})
	m = next.(model)
	if got := buildResults(run(cmd)); len(got) != 0 {
		t.Fatalf("baseline probe built: %+v", got)
	}

	// registry change: immediate observe build
	next, cmd = m.Update(probedMsg{registry: 2, convo: t0})
	m = next.(model)
	got := buildResults(run(cmd))
	if len(got) != 1 || got[0].reason != branch.ReasonObserve {
		t.Fatalf("registry change: %+v", got)
	}

	// conversation change: debounced
	next, cmd = m.Update(probedMsg{registry: 2, convo: t0.Add(time.Second)})
	m = next.(model)
	var tick *debounceTickMsg
	for _, msg := range run(cmd) {
		if d, ok := msg.(debounceTickMsg); ok {
			tick = &d
		}
	}
	if tick == nil || tick.seq != m.debounceSeq {
		t.Fatalf("no debounce scheduled, seq=%d", m.debounceSeq)
	}
	_, cmd = m.Update(*tick)
	got = buildResults(run(cmd))
	if len(got) != 1 || got[0].reason != branch.ReasonDebounce {
		t.Fatalf("debounce: %+v", got)
	}
}

func TestStaleDebounceIgnored(t *testing.T) {
	t.Parallel()

	m := testModel(&fakeBuilder{})
	m.debounceSeq = 3
	if _, cmd := m.Update(debounceTickMsg{seq: 2}); cmd != nil {
		t.Fatal("stale debounce tick should not build")
	}
}

func TestViewBeforeSize(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), Options{ConversationID: "x"})
	if m.View() != "" {
		t.Fatal("view should be empty until the window size is known")
	}
	if m.opts.Poll != defaultPoll || m.opts.Debounce != defaultDebounce {
		t.Fatal("defaults not applied")
	}
}
