package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

const (
	// RegistryKey holds the branch registry blob.
	RegistryKey = "registry"
	// PendingForkKey holds the pending fork signal.
	PendingForkKey = "pending_fork"
)

// ErrCorrupt is returned alongside an empty registry when the stored blob
// cannot be decoded.
var ErrCorrupt = errors.New("registry blob corrupt")

// Store is a whole-value key/value store. Get returns nil, nil for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Load reads a registry snapshot. A missing blob is an empty registry. A
// corrupt blob also yields an empty registry, together with an error wrapping
// ErrCorrupt so the caller can report it and carry on.
func Load(ctx context.Context, s Store) (Registry, error) {
	data, err := s.Get(ctx, RegistryKey)
	if err != nil {
		return New(), fmt.Errorf("read registry: %w", err)
	}
	if len(data) == 0 {
		return New(), nil
	}
	return Decode(data)
}

// Decode parses a registry blob and normalizes it: nil maps are filled,
// records without a child id are dropped and duplicate children within a
// parent collapse to their first occurrence.
func Decode(data []byte) (Registry, error) {
	var raw Registry
	if err := json.Unmarshal(data, &raw); err != nil {
		return New(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	reg := New()
	for parent, recs := range raw.Branches {
		for _, rec := range recs {
			if rec.ChildID == "" {
				continue
			}
			reg.AddBranch(parent, rec)
		}
	}
	for id, title := range raw.Titles {
		reg.Titles[id] = title
	}
	return reg, nil
}

// Update performs a whole-blob read-modify-write. fn receives a private copy;
// returning an error leaves the stored blob untouched. A corrupt blob is
// replaced by whatever fn builds on top of an empty registry.
func Update(ctx context.Context, s Store, fn func(*Registry) error) (Registry, error) {
	reg, err := Load(ctx, s)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return Registry{}, err
	}
	if err := fn(&reg); err != nil {
		return Registry{}, err
	}

	data, err := json.Marshal(reg)
	if err != nil {
		return Registry{}, fmt.Errorf("encode registry: %w", err)
	}
	if err := s.Put(ctx, RegistryKey, data); err != nil {
		return Registry{}, fmt.Errorf("write registry: %w", err)
	}
	return reg, nil
}

// Clear removes the registry blob; every conversation resolves as a root afterwards.
func Clear(ctx context.Context, s Store) error {
	if err := s.Delete(ctx, RegistryKey); err != nil {
		return fmt.Errorf("clear registry: %w", err)
	}
	return nil
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
