// ABOUTME: Reader pops cache entries and converts them to 16-bit PCM
// ABOUTME: An entry larger than the caller buffer is finished on later reads
package duplex

import (
	"sync"

	"github.com/harperreed/liveeffect-go/pkg/audio"
)

// Reader is the consumer side of a CacheQueue
type Reader struct {
	queue *CacheQueue

	mu      sync.Mutex
	pending *CacheEntry
	offset  int
}

// NewReader creates a reader over queue
func NewReader(queue *CacheQueue) *Reader {
	return &Reader{queue: queue}
}

// Read converts up to len(dst) samples of the next cached block into dst and
// returns the number written. It returns 0 when nothing is queued. Never
// blocks.
func (r *Reader) Read(dst []int16) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == nil {
		e, ok := r.queue.Pop()
		if !ok {
			return 0
		}
		r.pending, r.offset = e, 0
	}

	n := audio.ConvertFloatToPCM16(r.pending.Samples()[r.offset:], dst)
	r.offset += n
	if r.offset >= r.pending.Len() {
		r.pending.Release()
		r.pending = nil
		r.offset = 0
	}
	return n
}

// Pending returns the number of samples left over from a partial read
func (r *Reader) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return 0
	}
	return r.pending.Len() - r.offset
}

// Close releases any partially read entry
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		r.pending.Release()
		r.pending = nil
		r.offset = 0
	}
}
