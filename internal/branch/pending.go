package branch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cheese-zj/forktree/internal/convo"
	"github.com/cheese-zj/forktree/internal/registry"
)

// DefaultPendingExpiry is how long a recorded fork action stays claimable.
const DefaultPendingExpiry = 120 * time.Second

// PendingFork is recorded when a fork action is observed on a parent
// conversation, before the child's id is known.
type PendingFork struct {
	ParentID  string  `json:"parentId"`
	Timestamp float64 `json:"timestamp"` // seconds
}

// PendingForks holds at most one pending fork in a Store. Recording replaces
// any earlier signal; a signal is cleared when consumed or found expired.
type PendingForks struct {
	store  registry.Store
	expiry time.Duration
	now    func() time.Time
}

func NewPendingForks(store registry.Store, expiry time.Duration) *PendingForks {
	if expiry <= 0 {
		expiry = DefaultPendingExpiry
	}
	return &PendingForks{store: store, expiry: expiry, now: time.Now}
}

// Record stores a fork of parentID observed now.
func (p *PendingForks) Record(ctx context.Context, parentID string) error {
	return p.put(ctx, PendingFork{
		ParentID:  parentID,
		Timestamp: float64(p.now().UnixMilli()) / 1000,
	})
}

func (p *PendingForks) put(ctx context.Context, sig PendingFork) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("encode pending fork: %w", err)
	}
	if err := p.store.Put(ctx, registry.PendingForkKey, data); err != nil {
		return fmt.Errorf("write pending fork: %w", err)
	}
	return nil
}

// Peek returns the stored signal without clearing it.
func (p *PendingForks) Peek(ctx context.Context) (PendingFork, bool, error) {
	data, err := p.store.Get(ctx, registry.PendingForkKey)
	if err != nil {
		return PendingFork{}, false, fmt.Errorf("read pending fork: %w", err)
	}
	if len(data) == 0 {
		return PendingFork{}, false, nil
	}
	var sig PendingFork
	if err := json.Unmarshal(data, &sig); err != nil || sig.ParentID == "" {
		// unreadable signals are dropped
		if err := p.store.Delete(ctx, registry.PendingForkKey); err != nil {
			return PendingFork{}, false, fmt.Errorf("clear unreadable pending fork: %w", err)
		}
		return PendingFork{}, false, nil
	}
	return sig, true, nil
}

func (p *PendingForks) expired(sig PendingFork) bool {
	age := float64(p.now().UnixMilli())/1000 - sig.Timestamp
	return age > p.expiry.Seconds()
}

// Consume turns a pending fork into a registry record for child. It is a
// no-op when there is no signal, when the signal has expired, when child
// already has a parent, or when linking would close a cycle.
//
// child only qualifies as the fork when its earliest message of its own was
// sent no earlier than the signal. Messages the parent also has are not its
// own; if the parent cannot be fetched, messages older than the signal are
// skipped instead. A child that does not qualify (the parent itself, an older
// conversation, a fork with nothing typed into it yet) leaves the signal in
// place for the real fork. Otherwise the signal is cleared.
func (p *PendingForks) Consume(ctx context.Context, f convo.Fetcher, child *convo.Conversation) (registry.BranchRecord, bool, error) {
	sig, ok, err := p.Peek(ctx)
	if err != nil || !ok {
		return registry.BranchRecord{}, false, err
	}
	if p.expired(sig) {
		if err := p.store.Delete(ctx, registry.PendingForkKey); err != nil {
			return registry.BranchRecord{}, false, fmt.Errorf("clear pending fork: %w", err)
		}
		return registry.BranchRecord{}, false, nil
	}
	if sig.ParentID == child.ID {
		return registry.BranchRecord{}, false, nil
	}

	first, ok := p.ownFirstMessage(ctx, f, sig, child)
	if !ok {
		return registry.BranchRecord{}, false, nil
	}
	if err := p.store.Delete(ctx, registry.PendingForkKey); err != nil {
		return registry.BranchRecord{}, false, fmt.Errorf("clear pending fork: %w", err)
	}

	rec := registry.BranchRecord{
		ChildID:      child.ID,
		Title:        child.Title,
		FirstMessage: first.Text,
		CreatedAt:    sig.Timestamp,
	}

	added := false
	_, err = registry.Update(ctx, p.store, func(reg *registry.Registry) error {
		if _, has := reg.FindParent(child.ID); has || hasDescendant(*reg, child.ID, sig.ParentID) {
			return nil
		}
		added = reg.AddBranch(sig.ParentID, rec)
		reg.SetTitle(child.ID, child.Title)
		return nil
	})
	if err != nil {
		return registry.BranchRecord{}, false, err
	}
	return rec, added, nil
}

// ownFirstMessage returns child's earliest message of its own, provided it is
// not older than sig. Unknown (zero) times are accepted.
func (p *PendingForks) ownFirstMessage(ctx context.Context, f convo.Fetcher, sig PendingFork, child *convo.Conversation) (RawMessage, bool) {
	isNew := func(m RawMessage) bool {
		return m.CreateTime == 0 || m.CreateTime >= sig.Timestamp
	}

	parent, err := f.Fetch(ctx, sig.ParentID)
	if err != nil {
		for _, m := range UserMessages(child.Mapping, nil) {
			if isNew(m) {
				return m, true
			}
		}
		return RawMessage{}, false
	}

	exclude := TimeSet{}
	exclude.AddMessages(UserMessages(parent.Mapping, nil))
	first, ok := FirstUserMessage(child.Mapping, exclude)
	if !ok || !isNew(first) {
		return RawMessage{}, false
	}
	return first, true
}

// hasDescendant reports whether target is reachable below id.
func hasDescendant(reg registry.Registry, id, target string) bool {
	seen := map[string]bool{}
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, rec := range reg.Branches[cur] {
			if rec.ChildID == target {
				return true
			}
			stack = append(stack, rec.ChildID)
		}
	}
	return false
}
