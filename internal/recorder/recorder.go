// ABOUTME: Consumer goroutine draining the engine cache into PCM sinks
// ABOUTME: Polls without spinning, drains on shutdown and drops failing sinks
package recorder

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults for zero Options fields
const (
	DefaultBufferSamples = 1024
	DefaultPollInterval  = 5 * time.Millisecond
)

// maxDrainReads bounds the final drain when the producer is still running
const maxDrainReads = 1 << 16

// PCMReader is the non-blocking pull side of the engine
type PCMReader interface {
	Read(dst []int16) int
}

// Sink receives converted PCM
type Sink interface {
	WriteSamples(samples []int16) error
	Close() error
}

// Options tunes the read loop
type Options struct {
	BufferSamples int
	PollInterval  time.Duration
}

// Stats counts recorder activity
type Stats struct {
	Samples    uint64
	Writes     uint64
	SinkErrors uint64
	Sinks      int
}

// Recorder moves PCM from a PCMReader to its sinks
type Recorder struct {
	src  PCMReader
	opts Options
	buf  []int16

	mu    sync.Mutex
	sinks []Sink

	samples    atomic.Uint64
	writes     atomic.Uint64
	sinkErrors atomic.Uint64
}

// New creates a recorder. Run must be called to start moving data.
func New(src PCMReader, opts Options, sinks ...Sink) *Recorder {
	if opts.BufferSamples <= 0 {
		opts.BufferSamples = DefaultBufferSamples
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Recorder{
		src:   src,
		opts:  opts,
		buf:   make([]int16, opts.BufferSamples),
		sinks: sinks,
	}
}

// Run reads until ctx is done, then drains what is queued and closes every
// sink.
func (r *Recorder) Run(ctx context.Context) error {
	defer r.closeSinks()

	timer := time.NewTimer(r.opts.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.drain()
			return nil
		default:
		}

		if n := r.src.Read(r.buf); n > 0 {
			r.dispatch(r.buf[:n])
			continue
		}

		timer.Reset(r.opts.PollInterval)
		select {
		case <-ctx.Done():
			r.drain()
			return nil
		case <-timer.C:
		}
	}
}

func (r *Recorder) drain() {
	for i := 0; i < maxDrainReads; i++ {
		n := r.src.Read(r.buf)
		if n == 0 {
			return
		}
		r.dispatch(r.buf[:n])
	}
}

// dispatch writes samples to every sink, dropping sinks that fail
func (r *Recorder) dispatch(samples []int16) {
	r.writes.Add(1)
	r.samples.Add(uint64(len(samples)))

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.sinks[:0]
	for _, s := range r.sinks {
		if err := s.WriteSamples(samples); err != nil {
			r.sinkErrors.Add(1)
			log.Printf("Recorder sink failed, removing it: %v", err)
			if cerr := s.Close(); cerr != nil {
				log.Printf("Recorder sink close error: %v", cerr)
			}
			continue
		}
		kept = append(kept, s)
	}
	clear(r.sinks[len(kept):])
	r.sinks = kept
}

func (r *Recorder) closeSinks() {
	r.mu.Lock()
	sinks := r.sinks
	r.sinks = nil
	r.mu.Unlock()

	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Printf("Recorder sink close error: %v", err)
		}
	}
}

// Stats returns the recorder counters
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	sinks := len(r.sinks)
	r.mu.Unlock()

	return Stats{
		Samples:    r.samples.Load(),
		Writes:     r.writes.Load(),
		SinkErrors: r.sinkErrors.Load(),
		Sinks:      sinks,
	}
}
