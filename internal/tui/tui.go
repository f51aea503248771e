package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cheese-zj/forktree/internal/branch"
	"github.com/cheese-zj/forktree/internal/outline"
)

const (
	defaultPoll     = 2 * time.Second
	defaultDebounce = 300 * time.Millisecond
)

// Probe reports the state the watch loop polls for changes.
type Probe interface {
	// RegistryStamp changes whenever the stored registry changes.
	RegistryStamp(ctx context.Context) (uint64, error)
	// ConversationStamp changes whenever the conversation is rewritten.
	ConversationStamp(ctx context.Context, id string) (time.Time, error)
}

type Options struct {
	ConversationID string
	Refresher      *branch.Refresher
	Probe          Probe
	// Invalidate, if set, drops cached conversations before each build.
	Invalidate func()
	Poll       time.Duration
	Debounce   time.Duration
}

// message types

type buildResultMsg struct {
	reason branch.Reason
	out    branch.Output
	err    error
}

type pollTickMsg struct{}

type probedMsg struct {
	registry uint64
	convo    time.Time
	err      error
}

type debounceTickMsg struct {
	seq int
}

type copiedMsg struct {
	id  string
	err error
}

// model

type model struct {
	ctx  context.Context
	opts Options

	out       branch.Output
	applied   uint64 // signature of out
	hasOutput bool

	// last probe, compared against the next one
	probed        bool
	registryStamp uint64
	convoStamp    time.Time
	debounceSeq   int

	status   string
	warn     bool
	viewport viewport.Model
	width    int
	height   int
	ready    bool
	quitting bool
}

func newModel(ctx context.Context, opts Options) model {
	if opts.Poll <= 0 {
		opts.Poll = defaultPoll
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	return model{
		ctx:      ctx,
		opts:     opts,
		status:   "loading...",
		viewport: viewport.New(0, 0),
	}
}

// Run starts the watch loop and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(newModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// Init triggers the first build and the first probe.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.build(branch.ReasonRefresh), m.probe())
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.viewport.Width = m.panelWidth()
		m.viewport.Height = m.panelHeight()
		m.render()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			m.setStatus("refreshing...", false)
			return m, m.build(branch.ReasonRefresh)
		case key.Matches(msg, keys.Copy):
			return m, copyID(m.opts.ConversationID)
		case key.Matches(msg, keys.Up):
			m.viewport.LineUp(1)
		case key.Matches(msg, keys.Down):
			m.viewport.LineDown(1)
		case key.Matches(msg, keys.PageUp):
			m.viewport.LineUp(m.panelHeight())
		case key.Matches(msg, keys.PageDown):
			m.viewport.LineDown(m.panelHeight())
		}
		return m, nil

	case pollTickMsg:
		return m, m.probe()

	case probedMsg:
		next := m.schedulePoll()
		if msg.err != nil {
			m.setStatus("probe: "+msg.err.Error(), true)
			return m, next
		}
		if !m.probed {
			m.probed = true
			m.registryStamp, m.convoStamp = msg.registry, msg.convo
			return m, next
		}

		cmds := []tea.Cmd{next}
		if msg.registry != m.registryStamp {
			cmds = append(cmds, m.build(branch.ReasonObserve))
		}
		if !msg.convo.Equal(m.convoStamp) {
			// a conversation being written changes many times in a row
			m.debounceSeq++
			cmds = append(cmds, m.scheduleDebounce(m.debounceSeq))
		}
		m.registryStamp, m.convoStamp = msg.registry, msg.convo
		return m, tea.Batch(cmds...)

	case debounceTickMsg:
		// only the latest scheduled debounce fires
		if msg.seq != m.debounceSeq {
			return m, nil
		}
		return m, m.build(branch.ReasonDebounce)

	case buildResultMsg:
		switch {
		case errors.Is(msg.err, branch.ErrBuildInFlight):
			m.setStatus(fmt.Sprintf("%s dropped: build in flight", msg.reason), false)
		case msg.err != nil:
			m.setStatus("build: "+msg.err.Error(), true)
		case m.hasOutput && msg.out.Signature() == m.applied:
			m.setStatus(fmt.Sprintf("%s: unchanged", msg.reason), false)
		default:
			m.out = msg.out
			m.applied = msg.out.Signature()
			m.hasOutput = true
			m.render()
			m.setStatus(fmt.Sprintf("%s: %d rows", msg.reason, len(msg.out.Nodes)), false)
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setStatus("copy: "+msg.err.Error(), true)
		} else {
			m.setStatus("copied "+msg.id, false)
		}
		return m, nil
	}

	return m, nil
}

// View renders the full TUI.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	title := m.out.Title
	if title == "" {
		title = m.opts.ConversationID
	}
	header := styleHeader.Render(title)

	panel := stylePanelBorder.
		Width(m.panelWidth()).
		Height(m.panelHeight()).
		Render(m.viewport.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, panel, m.statusBar())
}

// helper methods

func (m model) panelWidth() int {
	if m.width <= 0 {
		return 80
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// header (1) + status bar (1) + borders (2)
	h := m.height - 4
	if h < 5 {
		h = 5
	}
	return h
}

func (m *model) render() {
	if !m.hasOutput {
		return
	}
	lines := outline.Lines(m.out.Nodes, outline.Options{
		Width:    m.panelWidth(),
		Color:    true,
		Truncate: true,
	})
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

func (m *model) setStatus(s string, warn bool) {
	m.status = s
	m.warn = warn
}

func (m model) statusBar() string {
	parts := []string{
		m.status,
		"r refresh",
		"y copy id",
		"up/dn scroll",
		"q quit",
	}
	style := styleStatusBar
	if m.warn {
		style = styleStatusWarn
	}
	return style.Render(strings.Join(parts, " | "))
}

func (m model) build(reason branch.Reason) tea.Cmd {
	ctx, id := m.ctx, m.opts.ConversationID
	r, invalidate := m.opts.Refresher, m.opts.Invalidate
	return func() tea.Msg {
		if invalidate != nil && !r.Busy() {
			invalidate()
		}
		out, err := r.Trigger(ctx, id, reason)
		return buildResultMsg{reason: reason, out: out, err: err}
	}
}

func (m model) probe() tea.Cmd {
	ctx, id, p := m.ctx, m.opts.ConversationID, m.opts.Probe
	return func() tea.Msg {
		if p == nil {
			return nil
		}
		reg, err := p.RegistryStamp(ctx)
		if err != nil {
			return probedMsg{err: err}
		}
		ts, err := p.ConversationStamp(ctx, id)
		return probedMsg{registry: reg, convo: ts, err: err}
	}
}

func (m model) schedulePoll() tea.Cmd {
	return tea.Tick(m.opts.Poll, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func (m model) scheduleDebounce(seq int) tea.Cmd {
	return tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg {
		return debounceTickMsg{seq: seq}
	})
}

func copyID(id string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{id: id, err: clipboard.WriteAll(id)}
	}
}
