package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

// shardCount is the number of independent lock domains. Keys are spread by
// FNV-1a hash so two busy subjects almost never contend on the same mutex.
const shardCount = 64

// defaultJanitorInterval is how often idle windows are evicted.
const defaultJanitorInterval = time.Minute

// Limiter maintains per-key sliding windows of admission timestamps and
// answers "is one more event allowed right now".
//
// Windows are created lazily on first check, pruned of expired timestamps
// before every check, and evicted entirely by a background janitor once they
// have been empty for a full window. Eviction is a liveness concern only; a
// stale empty window never changes a decision.
type Limiter struct {
	shards [shardCount]windowShard

	done      chan struct{}
	closeOnce sync.Once

	// now is replaceable in tests for deterministic timing.
	now func() time.Time
}

type windowShard struct {
	mu      sync.Mutex
	windows map[string]*window
}

// window is the ordered set of in-window admission timestamps for one key,
// oldest first, plus the window duration last used to check it (needed by
// the janitor to decide when the key is safely idle).
type window struct {
	stamps   []time.Time
	duration time.Duration
}

// NewLimiter creates a limiter and starts its eviction janitor.
// Call Close to stop the janitor.
func NewLimiter() *Limiter {
	l := &Limiter{
		done: make(chan struct{}),
		now:  time.Now,
	}
	for i := range l.shards {
		l.shards[i].windows = make(map[string]*window)
	}
	go l.janitorLoop(defaultJanitorInterval)
	return l
}

// CheckAndRecord checks whether one more event is allowed for the key and,
// if so, records it. The check and the record are a single atomic step under
// the key's shard lock: two concurrent calls against the same key can never
// both observe the same free slot.
//
// A non-positive windowDur always denies.
func (l *Limiter) CheckAndRecord(key Key, threshold int, windowDur time.Duration) *Decision {
	if windowDur <= 0 {
		return &Decision{Allowed: false, Kind: key.Kind, Limit: threshold}
	}

	now := l.now()
	shard := l.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	w := shard.windows[key.String()]
	if w == nil {
		w = &window{duration: windowDur}
		shard.windows[key.String()] = w
	}
	w.duration = windowDur
	w.pruneLocked(now, windowDur)

	count := len(w.stamps)
	if count < threshold {
		w.stamps = append(w.stamps, now)
		return &Decision{
			Allowed:    true,
			Kind:       key.Kind,
			Limit:      threshold,
			Remaining:  threshold - count - 1,
			Reset:      w.stamps[0].Add(windowDur),
			RecordedAt: now,
		}
	}

	d := &Decision{
		Allowed:   false,
		Kind:      key.Kind,
		Limit:     threshold,
		Remaining: 0,
	}
	if count > 0 {
		// One slot frees when the oldest in-window admission expires.
		d.Reset = w.stamps[0].Add(windowDur)
		d.RetryAfter = d.Reset.Sub(now)
	} else {
		// threshold == 0: permanently denied for this requirement.
		d.RetryAfter = windowDur
	}
	return d
}

// Unrecord removes a previously recorded admission, identified by the
// timestamp CheckAndRecord stamped it with (Decision.RecordedAt). It
// returns window capacity when a later gate denies the same request, so
// a denied request consumes no budget in windows it had already passed.
// Unrecording an expired or already-removed admission is a no-op.
func (l *Limiter) Unrecord(key Key, recordedAt time.Time) {
	shard := l.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	w := shard.windows[key.String()]
	if w == nil {
		return
	}
	for i := len(w.stamps) - 1; i >= 0; i-- {
		if w.stamps[i].Equal(recordedAt) {
			w.stamps = append(w.stamps[:i], w.stamps[i+1:]...)
			return
		}
	}
}

// Count returns the number of in-window admissions for the key.
func (l *Limiter) Count(key Key, windowDur time.Duration) int {
	now := l.now()
	shard := l.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	w := shard.windows[key.String()]
	if w == nil {
		return 0
	}
	w.pruneLocked(now, windowDur)
	return len(w.stamps)
}

// Keys returns the number of live window keys across all shards.
func (l *Limiter) Keys() int {
	total := 0
	for i := range l.shards {
		l.shards[i].mu.Lock()
		total += len(l.shards[i].windows)
		l.shards[i].mu.Unlock()
	}
	return total
}

// Close stops the eviction janitor. The limiter remains usable; windows
// simply stop being garbage collected.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// evictIdle removes keys whose windows hold no live timestamps.
func (l *Limiter) evictIdle() {
	now := l.now()
	for i := range l.shards {
		shard := &l.shards[i]
		shard.mu.Lock()
		for k, w := range shard.windows {
			w.pruneLocked(now, w.duration)
			if len(w.stamps) == 0 {
				delete(shard.windows, k)
			}
		}
		shard.mu.Unlock()
	}
}

func (l *Limiter) janitorLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) shardFor(key Key) *windowShard {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return &l.shards[h.Sum32()%shardCount]
}

// pruneLocked drops timestamps at or beyond the window edge. Timestamps are
// appended in order, so pruning is a single scan from the front.
// Caller must hold the shard lock.
func (w *window) pruneLocked(now time.Time, windowDur time.Duration) {
	cutoff := now.Add(-windowDur)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
