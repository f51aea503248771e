package branch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/cheese-zj/forktree/internal/convo"
	"github.com/cheese-zj/forktree/internal/registry"
)

type Options struct {
	Fetcher convo.Fetcher
	Store   registry.Store
	// Pending, when set, is consumed at the start of every build.
	Pending *PendingForks
	// Logger receives one WARN line per degraded step. Defaults to discard.
	Logger *log.Logger
}

// Service builds branch views for conversations.
type Service struct {
	fetcher convo.Fetcher
	store   registry.Store
	pending *PendingForks
	logger  *log.Logger
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		fetcher: opts.Fetcher,
		store:   opts.Store,
		pending: opts.Pending,
		logger:  logger,
	}
}

// Build produces the branch view for id. It fails only when no view can be
// produced at all: a missing id or a current conversation that cannot be
// fetched. Registry, ancestry and pending-fork problems degrade the result
// and are logged.
func (s *Service) Build(ctx context.Context, id string) (Output, error) {
	if id == "" {
		return Output{}, ErrNoConversationID
	}

	current, err := s.fetcher.Fetch(ctx, id)
	if err != nil {
		return Output{}, fmt.Errorf("build %s: %w", id, err)
	}

	if s.pending != nil {
		if rec, ok, err := s.pending.Consume(ctx, s.fetcher, current); err != nil {
			s.logger.Printf("WARN: pending fork for %s: %v", id, err)
		} else if ok {
			s.logger.Printf("recorded fork %s (created %.0f)", rec.ChildID, rec.CreatedAt)
		}
	}

	// one snapshot for the whole build
	reg, loadErr := registry.Load(ctx, s.store)
	if err := loadErr; err != nil {
		if errors.Is(err, registry.ErrCorrupt) {
			s.logger.Printf("WARN: %v; treating registry as empty", err)
		} else {
			s.logger.Printf("WARN: %v; building without registry", err)
		}
	}

	chain, stop := ResolveAncestry(ctx, s.fetcher, reg, id)
	if stop != nil {
		s.logger.Printf("WARN: ancestry of %s truncated at depth %d: %v", id, len(chain), stop)
	}

	nodes := Annotate(BuildTree(TreeInput{
		ConversationID: id,
		Conversation:   current,
		Ancestry:       chain,
		Registry:       reg,
	}))

	if loadErr == nil {
		s.rememberTitles(ctx, reg, current, chain)
	}

	return Output{
		ConversationID: id,
		Title:          reg.Title(id, current.Title),
		Nodes:          nodes,
		HasAncestry:    len(chain) > 0,
	}, nil
}

// rememberTitles stores fetched titles the registry does not know yet.
func (s *Service) rememberTitles(ctx context.Context, snapshot registry.Registry, current *convo.Conversation, chain []AncestorEntry) {
	titles := map[string]string{}
	if current.Title != "" && snapshot.Titles[current.ID] == "" {
		titles[current.ID] = current.Title
	}
	for _, a := range chain {
		if t := a.Conversation.Title; t != "" && snapshot.Titles[a.ConversationID] == "" {
			titles[a.ConversationID] = t
		}
	}
	if len(titles) == 0 {
		return
	}

	_, err := registry.Update(ctx, s.store, func(reg *registry.Registry) error {
		for id, t := range titles {
			reg.SetTitle(id, t)
		}
		return nil
	})
	if err != nil {
		s.logger.Printf("WARN: remember titles: %v", err)
	}
}

// Builder is anything that can build a branch view.
type Builder interface {
	Build(ctx context.Context, id string) (Output, error)
}

// Reason says what triggered a build.
type Reason string

const (
	ReasonRefresh  Reason = "refresh"
	ReasonObserve  Reason = "observe"
	ReasonDebounce Reason = "debounce"
)

// Refresher funnels every build trigger into one guarded operation. A trigger
// that arrives while a build is running is dropped with ErrBuildInFlight.
type Refresher struct {
	builder Builder
	busy    atomic.Bool
}

func NewRefresher(b Builder) *Refresher {
	return &Refresher{builder: b}
}

func (r *Refresher) Trigger(ctx context.Context, id string, reason Reason) (Output, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return Output{}, fmt.Errorf("%s: %w", reason, ErrBuildInFlight)
	}
	defer r.busy.Store(false)
	return r.builder.Build(ctx, id)
}

// Busy reports whether a build is running.
func (r *Refresher) Busy() bool {
	return r.busy.Load()
}
