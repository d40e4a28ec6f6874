// ABOUTME: FullDuplexPass is the duplex device callback: input is copied to
// ABOUTME: output and cached for a consumer while ear return is enabled
package duplex

import "sync/atomic"

// DataCallbackResult tells the device whether to keep calling back
type DataCallbackResult int

const (
	Continue DataCallbackResult = iota
	Stop
)

func (r DataCallbackResult) String() string {
	if r == Stop {
		return "stop"
	}
	return "continue"
}

// PassStats counts callback activity
type PassStats struct {
	Callbacks     uint64
	Cached        uint64
	PaddedSamples uint64
	Stops         uint64
}

// FullDuplexPass copies captured audio straight to the output stream.
type FullDuplexPass struct {
	queue     *CacheQueue
	earReturn atomic.Bool

	callbacks atomic.Uint64
	cached    atomic.Uint64
	padded    atomic.Uint64
	stops     atomic.Uint64
}

// NewFullDuplexPass creates a pass that caches into queue. A nil queue gets
// a default-sized DropOldest queue.
func NewFullDuplexPass(queue *CacheQueue) *FullDuplexPass {
	if queue == nil {
		queue = NewCacheQueue(DefaultQueueCapacity, DropOldest)
	}
	return &FullDuplexPass{queue: queue}
}

// Queue returns the queue cache entries are pushed to
func (p *FullDuplexPass) Queue() *CacheQueue {
	return p.queue
}

// SetEarReturn enables or disables monitoring from the next callback on
func (p *FullDuplexPass) SetEarReturn(on bool) {
	p.earReturn.Store(on)
}

// EarReturn reports whether monitoring is enabled
func (p *FullDuplexPass) EarReturn() bool {
	return p.earReturn.Load()
}

// OnBothStreamsReady is the device callback entry point. It samples the
// ear return flag once and delegates to Process.
func (p *FullDuplexPass) OnBothStreamsReady(input []float32, numInputFrames int, output []float32, numOutputFrames int, channelCount int) DataCallbackResult {
	return p.Process(input, numInputFrames, output, numOutputFrames, channelCount, p.earReturn.Load())
}

// Process handles one duplex block.
//
// With monitoring off the output is left untouched. With monitoring on,
// min(I, O) * C samples are copied to output and into a new CacheEntry that
// is pushed to the queue, then the output tail is zeroed when O > I.
// Slices shorter than their frame counts are clamped to their length.
// A channel count below 1 or a closed queue silences the output and
// returns Stop.
func (p *FullDuplexPass) Process(input []float32, numInputFrames int, output []float32, numOutputFrames int, channelCount int, monitoring bool) DataCallbackResult {
	p.callbacks.Add(1)
	if !monitoring {
		return Continue
	}

	if channelCount < 1 {
		clear(output)
		p.stops.Add(1)
		return Stop
	}

	numInputSamples := clampSamples(numInputFrames*channelCount, len(input))
	numOutputSamples := clampSamples(numOutputFrames*channelCount, len(output))
	samplesToProcess := min(numInputSamples, numOutputSamples)

	copy(output[:samplesToProcess], input[:samplesToProcess])

	if err := p.queue.Push(NewCacheEntry(input[:samplesToProcess])); err != nil {
		clear(output[:numOutputSamples])
		p.stops.Add(1)
		return Stop
	}
	p.cached.Add(1)

	if samplesLeft := numOutputSamples - samplesToProcess; samplesLeft > 0 {
		clear(output[samplesToProcess:numOutputSamples])
		p.padded.Add(uint64(samplesLeft))
	}

	return Continue
}

// Stats returns the pass counters
func (p *FullDuplexPass) Stats() PassStats {
	return PassStats{
		Callbacks:     p.callbacks.Load(),
		Cached:        p.cached.Load(),
		PaddedSamples: p.padded.Load(),
		Stops:         p.stops.Load(),
	}
}

func clampSamples(n, limit int) int {
	if n < 0 {
		return 0
	}
	return min(n, limit)
}
