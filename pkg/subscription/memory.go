package subscription

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. State does not survive restarts; use
// the SQLite store when durability is required.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*Subscription)}
}

// Get returns the subject's subscription, or ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, subject string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subs[subject]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

// Put inserts or replaces the subject's subscription.
func (m *MemoryStore) Put(ctx context.Context, sub *Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *sub
	m.subs[sub.Subject] = &cp
	return nil
}

// Delete removes the subject's subscription.
func (m *MemoryStore) Delete(ctx context.Context, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subs, subject)
	return nil
}

// List returns every stored subscription.
func (m *MemoryStore) List(ctx context.Context) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := make([]*Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		cp := *sub
		subs = append(subs, &cp)
	}
	return subs, nil
}

// Close releases the store. It is a no-op for the memory backend.
func (m *MemoryStore) Close() error {
	return nil
}
