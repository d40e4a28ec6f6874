// ABOUTME: CacheEntry is a uniquely owned copy of one captured audio block
// ABOUTME: Sample storage comes from a sync.Pool and goes back on Release
package duplex

import "sync"

// poolBlockSamples is the starting capacity of pooled buffers. 4096 samples
// covers a 2048-frame stereo callback without regrowing.
const poolBlockSamples = 4096

var samplePool = sync.Pool{
	New: func() any {
		buf := make([]float32, 0, poolBlockSamples)
		return &buf
	},
}

// CacheEntry owns a buffer of interleaved float samples.
//
// Exactly one party owns an entry at a time: the pass that created it, then
// the queue, then whoever popped it. The owner calls Release when done.
type CacheEntry struct {
	buf     *[]float32
	samples []float32
}

// NewCacheEntry copies src into a pooled buffer owned by the returned entry.
func NewCacheEntry(src []float32) *CacheEntry {
	bp := samplePool.Get().(*[]float32)
	if cap(*bp) < len(src) {
		*bp = make([]float32, len(src))
	}
	*bp = (*bp)[:len(src)]
	copy(*bp, src)
	return &CacheEntry{buf: bp, samples: *bp}
}

// Samples returns the owned samples. The slice is only valid until Release.
func (e *CacheEntry) Samples() []float32 {
	if e == nil {
		return nil
	}
	return e.samples
}

// Len returns the number of samples in the entry
func (e *CacheEntry) Len() int {
	if e == nil {
		return 0
	}
	return len(e.samples)
}

// Release returns the buffer to the pool. Calling it again is a no-op.
func (e *CacheEntry) Release() {
	if e == nil || e.buf == nil {
		return
	}
	*e.buf = (*e.buf)[:0]
	samplePool.Put(e.buf)
	e.buf = nil
	e.samples = nil
}
