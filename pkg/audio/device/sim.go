// ABOUTME: Simulated duplex backend driven by a ticker
// ABOUTME: Feeds a SampleReader into the callback and writes output to a Sink
package device

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/harperreed/liveeffect-go/pkg/duplex"
)

type simStream struct {
	cfg  Config
	cb   Callback
	src  SampleReader
	sink Sink
	sig  *stopSignal

	in  []float32
	out []float32
	eof bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
	sinkErr bool
}

func openSim(cfg Config, cb Callback) (Stream, error) {
	sink := cfg.Sink
	if sink == nil {
		sink = Discard
	}
	n := cfg.FramesPerBuffer * cfg.Channels
	s := &simStream{
		cfg:  cfg,
		cb:   cb,
		src:  cfg.Source,
		sink: sink,
		sig:  newStopSignal(),
		in:   make([]float32, n),
		out:  make([]float32, n),
	}
	log.Printf("Duplex stream opened: %dHz, %d channels, %d frames (sim)",
		cfg.SampleRate, cfg.Channels, cfg.FramesPerBuffer)
	return s, nil
}

// period is the wall-clock duration of one buffer
func (s *simStream) period() time.Duration {
	return time.Duration(s.cfg.FramesPerBuffer) * time.Second / time.Duration(s.cfg.SampleRate)
}

func (s *simStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if s.cancel != nil || s.sig.stopped() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

func (s *simStream) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.period())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.step() {
				return
			}
		}
	}
}

// step runs one callback cycle and reports whether the stream should keep
// running.
func (s *simStream) step() bool {
	ch := s.cfg.Channels
	n := s.fill()
	inFrames := n / ch

	result := s.cb(s.in[:inFrames*ch], inFrames, s.out, s.cfg.FramesPerBuffer)

	if err := s.sink.WriteSamples(s.out); err != nil && !s.sinkErr {
		s.sinkErr = true
		log.Printf("Sim output sink error: %v", err)
	}

	if result == duplex.Stop {
		s.sig.trigger()
		return false
	}
	return true
}

// fill reads one buffer of input. A nil source yields a full block of
// silence; at end of stream the block comes back short.
func (s *simStream) fill() int {
	if s.src == nil {
		clear(s.in)
		return len(s.in)
	}
	if s.eof {
		return 0
	}

	total := 0
	for total < len(s.in) {
		n, err := s.src.ReadSamples(s.in[total:])
		total += n
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("Sim input source error: %v", err)
			}
			s.eof = true
			break
		}
		if n == 0 {
			break
		}
	}
	return total
}

func (s *simStream) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
	return nil
}

func (s *simStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Stop()

	var errs []error
	if err := s.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := s.src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *simStream) SampleRate() int { return s.cfg.SampleRate }
func (s *simStream) Channels() int { return s.cfg.Channels }
func (s *simStream) Done() <-chan struct{} { return s.sig.done }

type discardSink struct{}

func (discardSink) WriteSamples([]float32) error { return nil }
func (discardSink) Close() error { return nil }

// Discard is a Sink that drops every block
var Discard Sink = discardSink{}
