package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"vantori-hq/tollgate/pkg/ledger"
)

// MemoryStorage implements ledger.Storage in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	nextSeq int64
	entries []*ledger.Entry

	// secondary indexes
	bySubject     map[string][]*ledger.Entry
	byReservation map[string][]*ledger.Entry
	byEventID     map[string]*ledger.Entry
}

// NewMemoryStorage creates an empty in-memory ledger store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		bySubject:     make(map[string][]*ledger.Entry),
		byReservation: make(map[string][]*ledger.Entry),
		byEventID:     make(map[string]*ledger.Entry),
	}
}

// Append persists an entry and assigns its Seq.
func (m *MemoryStorage) Append(ctx context.Context, entry *ledger.Entry) error {
	if err := entry.Validate(); err != nil {
		return ledger.NewStorageError("memory", "append", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSeq++
	cp := *entry
	cp.Seq = m.nextSeq
	entry.Seq = cp.Seq

	m.entries = append(m.entries, &cp)
	m.bySubject[cp.Subject] = append(m.bySubject[cp.Subject], &cp)
	if cp.ReservationID != "" {
		m.byReservation[cp.ReservationID] = append(m.byReservation[cp.ReservationID], &cp)
	}
	if cp.Kind == ledger.EntryCredit && cp.EventID != "" {
		m.byEventID[cp.EventID] = &cp
	}
	return nil
}

// Entries returns the subject's entries in creation order.
func (m *MemoryStorage) Entries(ctx context.Context, subject string) ([]*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyEntries(m.bySubject[subject]), nil
}

// LastEntry returns the subject's most recent entry, or nil.
func (m *MemoryStorage) LastEntry(ctx context.Context, subject string) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.bySubject[subject]
	if len(entries) == 0 {
		return nil, nil
	}
	cp := *entries[len(entries)-1]
	return &cp, nil
}

// ByReservation returns the entries sharing a reservation id.
func (m *MemoryStorage) ByReservation(ctx context.Context, reservationID string) ([]*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyEntries(m.byReservation[reservationID]), nil
}

// ByEventID returns the credit entry for the external event, or nil.
func (m *MemoryStorage) ByEventID(ctx context.Context, eventID string) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.byEventID[eventID]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

// OpenReservations returns reserve entries created before the cutoff with
// no commit or void entry yet.
func (m *MemoryStorage) OpenReservations(ctx context.Context, olderThan time.Time) ([]*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var open []*ledger.Entry
	for _, entries := range m.byReservation {
		var reserve *ledger.Entry
		finalized := false
		for _, e := range entries {
			switch {
			case e.Kind == ledger.EntryReserve:
				reserve = e
			case e.Finalizes():
				finalized = true
			}
		}
		if reserve == nil || finalized || !reserve.CreatedAt.Before(olderThan) {
			continue
		}
		cp := *reserve
		open = append(open, &cp)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Seq < open[j].Seq })
	return open, nil
}

// Subjects returns every subject with at least one entry.
func (m *MemoryStorage) Subjects(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subjects := make([]string, 0, len(m.bySubject))
	for subject := range m.bySubject {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects, nil
}

// Close releases the store. It is a no-op for the memory backend.
func (m *MemoryStorage) Close() error {
	return nil
}

func copyEntries(entries []*ledger.Entry) []*ledger.Entry {
	out := make([]*ledger.Entry, len(entries))
	for i, e := range entries {
		cp := *e
		out[i] = &cp
	}
	return out
}
