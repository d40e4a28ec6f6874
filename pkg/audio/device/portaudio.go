//go:build portaudio

// ABOUTME: PortAudio duplex backend
// ABOUTME: Default input and output devices sharing one callback
package device

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/harperreed/liveeffect-go/pkg/duplex"
)

type portAudioStream struct {
	cfg    Config
	cb     Callback
	stream *portaudio.Stream
	sig    *stopSignal

	mu      sync.Mutex
	started bool
	closed  bool
}

func openPortAudio(cfg Config, cb Callback) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	s := &portAudioStream{cfg: cfg, cb: cb, sig: newStopSignal()}
	stream, err := portaudio.OpenDefaultStream(cfg.Channels, cfg.Channels, float64(cfg.SampleRate), cfg.FramesPerBuffer, s.process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open duplex stream: %w", err)
	}
	s.stream = stream

	log.Printf("Duplex stream opened: %dHz, %d channels, %d frames (portaudio)",
		cfg.SampleRate, cfg.Channels, cfg.FramesPerBuffer)
	return s, nil
}

func (s *portAudioStream) process(in, out []float32) {
	if s.sig.stopped() {
		clear(out)
		return
	}
	ch := s.cfg.Channels
	if s.cb(in, len(in)/ch, out, len(out)/ch) == duplex.Stop {
		s.sig.trigger()
	}
}

func (s *portAudioStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if s.started {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}
	s.started = true
	return nil
}

func (s *portAudioStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *portAudioStream) stopLocked() error {
	if !s.started {
		return nil
	}
	s.started = false
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop portaudio stream: %w", err)
	}
	return nil
}

func (s *portAudioStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.stopLocked(); err != nil {
		log.Printf("Warning: %v", err)
	}
	if err := s.stream.Close(); err != nil {
		log.Printf("Warning: portaudio stream close error: %v", err)
	}
	return portaudio.Terminate()
}

func (s *portAudioStream) SampleRate() int { return s.cfg.SampleRate }
func (s *portAudioStream) Channels() int { return s.cfg.Channels }
func (s *portAudioStream) Done() <-chan struct{} { return s.sig.done }
