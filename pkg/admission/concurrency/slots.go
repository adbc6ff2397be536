package concurrency

import (
	"sync"
	"sync/atomic"
)

// SlotManager tracks in-flight execution slots per subject.
//
// Counters are created lazily on first acquire and mutated with
// compare-and-swap loops, so a denied acquire performs no write at all.
type SlotManager struct {
	slots sync.Map // subject -> *atomic.Int64
}

// NewSlotManager creates an empty slot manager.
func NewSlotManager() *SlotManager {
	return &SlotManager{}
}

// Acquire attempts to reserve one slot for the subject under the given cap.
// It returns true if the slot was reserved. A cap of zero or less denies
// every acquire.
func (m *SlotManager) Acquire(subject string, cap int) bool {
	if cap <= 0 {
		return false
	}

	c := m.counter(subject)
	for {
		cur := c.Load()
		if cur >= int64(cap) {
			return false
		}
		if c.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Release returns one slot for the subject. A release with no matching
// acquire is ignored; the count never goes negative.
func (m *SlotManager) Release(subject string) {
	v, ok := m.slots.Load(subject)
	if !ok {
		return
	}

	c := v.(*atomic.Int64)
	for {
		cur := c.Load()
		if cur <= 0 {
			return
		}
		if c.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// InFlight returns the current slot count for the subject.
func (m *SlotManager) InFlight(subject string) int {
	v, ok := m.slots.Load(subject)
	if !ok {
		return 0
	}
	return int(v.(*atomic.Int64).Load())
}

// Subjects returns the number of subjects with a counter, including
// subjects whose count has returned to zero.
func (m *SlotManager) Subjects() int {
	n := 0
	m.slots.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (m *SlotManager) counter(subject string) *atomic.Int64 {
	if v, ok := m.slots.Load(subject); ok {
		return v.(*atomic.Int64)
	}
	v, _ := m.slots.LoadOrStore(subject, new(atomic.Int64))
	return v.(*atomic.Int64)
}
