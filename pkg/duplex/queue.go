// ABOUTME: Bounded FIFO handing CacheEntry ownership from the audio callback
// ABOUTME: to a consumer goroutine, with an explicit overflow policy
package duplex

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultQueueCapacity is used when NewCacheQueue is given a capacity <= 0.
const DefaultQueueCapacity = 256

// OverflowPolicy decides which entry is released when Push finds the queue full
type OverflowPolicy int

const (
	// DropOldest releases the oldest queued entry and keeps the new one.
	DropOldest OverflowPolicy = iota
	// DropNewest releases the incoming entry.
	DropNewest
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// ParseOverflowPolicy accepts "drop-oldest" or "drop-newest" (case-insensitive).
// An empty string yields DropOldest.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop-oldest", "oldest":
		return DropOldest, nil
	case "drop-newest", "newest":
		return DropNewest, nil
	default:
		return DropOldest, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// QueueStats is a point-in-time snapshot of queue counters
type QueueStats struct {
	Pushed   uint64
	Popped   uint64
	Dropped  uint64
	Depth    int
	Capacity int
}

// CacheQueue is a thread-safe FIFO of *CacheEntry backed by a fixed ring.
// Push and Pop never block beyond a short critical section and never
// allocate.
type CacheQueue struct {
	mu     sync.Mutex
	slots  []*CacheEntry
	head   int
	count  int
	closed bool
	policy OverflowPolicy

	pushed  atomic.Uint64
	popped  atomic.Uint64
	dropped atomic.Uint64
	depth   atomic.Int64
}

// NewCacheQueue creates a queue holding at most capacity entries
func NewCacheQueue(capacity int, policy OverflowPolicy) *CacheQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &CacheQueue{
		slots:  make([]*CacheEntry, capacity),
		policy: policy,
	}
}

// Push transfers ownership of e to the queue. The queue takes ownership even
// when it returns an error: a rejected or dropped entry is released.
func (q *CacheQueue) Push(e *CacheEntry) error {
	if e == nil {
		return nil
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		e.Release()
		return ErrQueueClosed
	}

	var victim *CacheEntry
	if q.count == len(q.slots) {
		if q.policy == DropNewest {
			q.mu.Unlock()
			e.Release()
			q.dropped.Add(1)
			return nil
		}
		victim = q.slots[q.head]
		q.slots[q.head] = nil
		q.head = (q.head + 1) % len(q.slots)
		q.count--
	}

	q.slots[(q.head+q.count)%len(q.slots)] = e
	q.count++
	q.depth.Store(int64(q.count))
	q.mu.Unlock()

	q.pushed.Add(1)
	if victim != nil {
		victim.Release()
		q.dropped.Add(1)
	}
	return nil
}

// Pop removes and returns the oldest entry. The caller becomes its owner.
// It returns (nil, false) when the queue is empty.
func (q *CacheQueue) Pop() (*CacheEntry, bool) {
	q.mu.Lock()
	if q.count == 0 {
		q.mu.Unlock()
		return nil, false
	}
	e := q.slots[q.head]
	q.slots[q.head] = nil
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	q.depth.Store(int64(q.count))
	q.mu.Unlock()

	q.popped.Add(1)
	return e, true
}

// Len returns the number of queued entries
func (q *CacheQueue) Len() int {
	return int(q.depth.Load())
}

// Cap returns the maximum number of queued entries
func (q *CacheQueue) Cap() int {
	return len(q.slots)
}

// Policy returns the overflow policy
func (q *CacheQueue) Policy() OverflowPolicy {
	return q.policy
}

// Stats returns the queue counters without taking the queue lock
func (q *CacheQueue) Stats() QueueStats {
	return QueueStats{
		Pushed:   q.pushed.Load(),
		Popped:   q.popped.Load(),
		Dropped:  q.dropped.Load(),
		Depth:    int(q.depth.Load()),
		Capacity: len(q.slots),
	}
}

// Closed reports whether Close has been called
func (q *CacheQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further pushes and releases every queued entry. Entries
// already popped are unaffected. Safe to call more than once.
func (q *CacheQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := make([]*CacheEntry, 0, q.count)
	for q.count > 0 {
		pending = append(pending, q.slots[q.head])
		q.slots[q.head] = nil
		q.head = (q.head + 1) % len(q.slots)
		q.count--
	}
	q.depth.Store(0)
	q.mu.Unlock()

	for _, e := range pending {
		e.Release()
	}
}
