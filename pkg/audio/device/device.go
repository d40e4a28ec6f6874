// ABOUTME: Duplex stream interface and backend dispatch
// ABOUTME: Common interface for real and simulated audio engines
package device

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/harperreed/liveeffect-go/pkg/duplex"
)

// Backend names accepted by Open
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
	BackendSim       = "sim"
)

// Defaults applied to zero Config fields
const (
	DefaultSampleRate      = 48000
	DefaultChannels        = 2
	DefaultFramesPerBuffer = 256
)

// Callback receives one duplex block. input and output are only valid for the
// duration of the call. Returning duplex.Stop ends the stream.
type Callback func(input []float32, numInputFrames int, output []float32, numOutputFrames int) duplex.DataCallbackResult

// SampleReader supplies captured samples to the sim backend
type SampleReader interface {
	ReadSamples(dst []float32) (int, error)
}

// Sink receives rendered output blocks from the sim backend
type Sink interface {
	WriteSamples(samples []float32) error
	Close() error
}

// Config selects a backend and stream format
type Config struct {
	Backend         string
	SampleRate      int
	Channels        int
	FramesPerBuffer int

	// Source and Sink are only used by the sim backend. A nil Source captures
	// silence; a nil Sink discards output. The stream closes both on Close.
	Source SampleReader
	Sink   Sink
}

// Stream is an open duplex stream
type Stream interface {
	// Start begins invoking the callback
	Start() error

	// Stop halts the callback; the stream may be started again
	Stop() error

	// Close stops and releases the stream
	Close() error

	SampleRate() int
	Channels() int

	// Done is closed once the callback has returned duplex.Stop
	Done() <-chan struct{}
}

// Backends lists the backend names Open recognises
func Backends() []string {
	return []string{BackendPortAudio, BackendMalgo, BackendSim}
}

// Open creates a duplex stream on the configured backend. The stream is not
// started.
func Open(cfg Config, cb Callback) (Stream, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cb == nil {
		return nil, fmt.Errorf("%w: nil callback", ErrInvalidConfig)
	}

	switch strings.ToLower(cfg.Backend) {
	case BackendPortAudio:
		return openPortAudio(cfg, cb)
	case BackendMalgo:
		return openMalgo(cfg, cb)
	case BackendSim:
		return openSim(cfg, cb)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendMalgo
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}
	if c.FramesPerBuffer == 0 {
		c.FramesPerBuffer = DefaultFramesPerBuffer
	}
	return c
}

func (c Config) validate() error {
	if c.SampleRate < 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.Channels < 0 {
		return fmt.Errorf("%w: channels %d", ErrInvalidConfig, c.Channels)
	}
	if c.FramesPerBuffer < 0 {
		return fmt.Errorf("%w: frames per buffer %d", ErrInvalidConfig, c.FramesPerBuffer)
	}
	return nil
}

// stopSignal records a Stop result from the callback. trigger is safe to
// call from a real-time thread: it never blocks.
type stopSignal struct {
	flag atomic.Bool
	once sync.Once
	done chan struct{}
}

func newStopSignal() *stopSignal {
	return &stopSignal{done: make(chan struct{})}
}

func (s *stopSignal) trigger() {
	s.flag.Store(true)
	s.once.Do(func() { close(s.done) })
}

func (s *stopSignal) stopped() bool {
	return s.flag.Load()
}
