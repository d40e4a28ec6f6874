// ABOUTME: LiveEffect engine context owning the duplex pass, cache queue and device stream
// ABOUTME: Explicit New/Close pair; effect and ear return are toggled at runtime
package engine

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/harperreed/liveeffect-go/pkg/audio"
	"github.com/harperreed/liveeffect-go/pkg/audio/device"
	"github.com/harperreed/liveeffect-go/pkg/duplex"
)

// InputFactory creates a fresh sim input for each stream start
type InputFactory func(sampleRate, channels int) (device.SampleReader, error)

// OutputFactory creates a fresh sim output for each stream start
type OutputFactory func(sampleRate, channels int) (device.Sink, error)

// Config configures an Engine
type Config struct {
	Device        device.Config
	QueueCapacity int
	Overflow      duplex.OverflowPolicy
	EarReturn     bool

	// Only used by the sim backend
	NewInput  InputFactory
	NewOutput OutputFactory
}

// Stats is a snapshot of engine state
type Stats struct {
	EffectOn  bool
	EarReturn bool
	Pass      duplex.PassStats
	Queue     duplex.QueueStats
}

// Engine is the pass-through context. Create with New, release with Close.
type Engine struct {
	id     string
	cfg    Config
	queue  *duplex.CacheQueue
	pass   *duplex.FullDuplexPass
	reader *duplex.Reader

	mu        sync.Mutex
	stream    device.Stream
	watchStop chan struct{}
	wg        sync.WaitGroup

	effectOn atomic.Bool
	closed   atomic.Bool
}

// New creates an engine. No device is opened until SetEffectOn(true).
func New(cfg Config) (*Engine, error) {
	if cfg.Device.Backend == "" {
		cfg.Device.Backend = device.BackendMalgo
	}
	if cfg.Device.SampleRate <= 0 {
		cfg.Device.SampleRate = device.DefaultSampleRate
	}
	if cfg.Device.Channels <= 0 {
		cfg.Device.Channels = device.DefaultChannels
	}
	if cfg.Device.FramesPerBuffer <= 0 {
		cfg.Device.FramesPerBuffer = device.DefaultFramesPerBuffer
	}

	queue := duplex.NewCacheQueue(cfg.QueueCapacity, cfg.Overflow)
	pass := duplex.NewFullDuplexPass(queue)
	pass.SetEarReturn(cfg.EarReturn)

	e := &Engine{
		id:     uuid.New().String(),
		cfg:    cfg,
		queue:  queue,
		pass:   pass,
		reader: duplex.NewReader(queue),
	}

	log.Printf("Engine %s created: backend=%s %dHz %dch %d frames, queue=%d (%s)",
		e.id, cfg.Device.Backend, cfg.Device.SampleRate, cfg.Device.Channels,
		cfg.Device.FramesPerBuffer, queue.Cap(), queue.Policy())
	return e, nil
}

// ID returns the engine's unique id
func (e *Engine) ID() string {
	return e.id
}

// Backend returns the configured device backend name
func (e *Engine) Backend() string {
	return e.cfg.Device.Backend
}

// SetEffectOn opens and starts the duplex stream, or stops and closes it.
// Calling it with the current state is a no-op.
func (e *Engine) SetEffectOn(on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		if on {
			return ErrClosed
		}
		return nil
	}
	if on == (e.stream != nil) {
		return nil
	}
	if on {
		return e.startLocked()
	}
	return e.stopLocked()
}

// IsEffectOn reports whether the duplex stream is running
func (e *Engine) IsEffectOn() bool {
	return e.effectOn.Load()
}

func (e *Engine) startLocked() error {
	devCfg := e.cfg.Device
	if strings.EqualFold(devCfg.Backend, device.BackendSim) {
		if err := e.attachSimIO(&devCfg); err != nil {
			return err
		}
	}

	channels := devCfg.Channels
	stream, err := device.Open(devCfg, func(in []float32, inFrames int, out []float32, outFrames int) duplex.DataCallbackResult {
		return e.pass.OnBothStreamsReady(in, inFrames, out, outFrames, channels)
	})
	if err != nil {
		closeQuietly(devCfg.Source)
		closeQuietly(devCfg.Sink)
		return fmt.Errorf("failed to open duplex stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start duplex stream: %w", err)
	}

	stop := make(chan struct{})
	e.stream = stream
	e.watchStop = stop
	e.effectOn.Store(true)

	e.wg.Add(1)
	go e.watch(stream, stop)

	log.Printf("Effect on (%s)", devCfg.Backend)
	return nil
}

// attachSimIO fills in the sim input and output from the factories
func (e *Engine) attachSimIO(devCfg *device.Config) error {
	if e.cfg.NewInput != nil {
		src, err := e.cfg.NewInput(devCfg.SampleRate, devCfg.Channels)
		if err != nil {
			return fmt.Errorf("failed to open sim input: %w", err)
		}
		devCfg.Source = src
	}
	if e.cfg.NewOutput != nil {
		sink, err := e.cfg.NewOutput(devCfg.SampleRate, devCfg.Channels)
		if err != nil {
			closeQuietly(devCfg.Source)
			return fmt.Errorf("failed to open sim output: %w", err)
		}
		devCfg.Sink = sink
	}
	return nil
}

// watch turns the effect off when the callback asks the stream to stop
func (e *Engine) watch(stream device.Stream, stop <-chan struct{}) {
	defer e.wg.Done()

	select {
	case <-stream.Done():
	case <-stop:
		return
	}

	log.Printf("Duplex callback requested stop, turning effect off")
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream != stream {
		return
	}
	if err := e.stopLocked(); err != nil {
		log.Printf("Error closing stopped stream: %v", err)
	}
}

func (e *Engine) stopLocked() error {
	stream := e.stream
	e.stream = nil
	close(e.watchStop)
	e.watchStop = nil
	e.effectOn.Store(false)

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close duplex stream: %w", err)
	}
	log.Printf("Effect off")
	return nil
}

// EnableEarReturn turns monitoring on or off from the next callback
func (e *Engine) EnableEarReturn(on bool) {
	e.pass.SetEarReturn(on)
}

// EarReturn reports whether monitoring is enabled
func (e *Engine) EarReturn() bool {
	return e.pass.EarReturn()
}

// Read converts the next cached block into dst and returns the number of
// samples written, or 0 when nothing is cached. Never blocks.
func (e *Engine) Read(dst []int16) int {
	if e.closed.Load() {
		return 0
	}
	return e.reader.Read(dst)
}

// SampleRate returns the stream sample rate in Hz
func (e *Engine) SampleRate() int {
	return e.cfg.Device.SampleRate
}

// ChannelCount returns the interleaved channel count
func (e *Engine) ChannelCount() int {
	return e.cfg.Device.Channels
}

// BitsPerSample is the width of samples returned by Read
func (e *Engine) BitsPerSample() int {
	return audio.BitsPerSample
}

// Format describes the PCM returned by Read
func (e *Engine) Format() audio.Format {
	return audio.Format{
		Codec:      "pcm",
		SampleRate: e.SampleRate(),
		Channels:   e.ChannelCount(),
		BitDepth:   e.BitsPerSample(),
	}
}

// Stats returns pass and queue counters
func (e *Engine) Stats() Stats {
	return Stats{
		EffectOn:  e.IsEffectOn(),
		EarReturn: e.EarReturn(),
		Pass:      e.pass.Stats(),
		Queue:     e.queue.Stats(),
	}
}

// Close stops the stream and releases every cached block. Safe to call more
// than once; the engine stays usable for read-only calls afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed.Swap(true) {
		e.mu.Unlock()
		return nil
	}
	var err error
	if e.stream != nil {
		err = e.stopLocked()
	}
	e.mu.Unlock()

	e.wg.Wait()
	e.queue.Close()
	e.reader.Close()

	log.Printf("Engine %s closed", e.id)
	return err
}

func closeQuietly(v any) {
	if c, ok := v.(io.Closer); ok {
		c.Close()
	}
}
