// ABOUTME: Malgo duplex backend
// ABOUTME: miniaudio duplex device with float32 capture and playback
package device

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/harperreed/liveeffect-go/pkg/duplex"
)

type malgoStream struct {
	cfg      Config
	cb       Callback
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	sig      *stopSignal

	mu      sync.Mutex
	started bool
	closed  bool
}

func openMalgo(cfg Config, cb Callback) (Stream, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	s := &malgoStream{cfg: cfg, cb: cb, malgoCtx: ctx, sig: newStopSignal()}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.FramesPerBuffer)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.process,
	})
	if err != nil {
		s.freeContext()
		return nil, fmt.Errorf("failed to initialize duplex device: %w", err)
	}
	s.device = device

	log.Printf("Duplex stream opened: %dHz, %d channels, %d frames (malgo/F32)",
		cfg.SampleRate, cfg.Channels, cfg.FramesPerBuffer)
	return s, nil
}

// process is the miniaudio data callback. Capture and playback share the
// same frame count in a duplex device.
func (s *malgoStream) process(pOutput, pInput []byte, frameCount uint32) {
	out := float32View(pOutput)
	if s.sig.stopped() {
		clear(out)
		return
	}
	in := float32View(pInput)
	frames := int(frameCount)
	if s.cb(in, frames, out, frames) == duplex.Stop {
		s.sig.trigger()
	}
}

// float32View reinterprets an F32 device buffer without copying
func float32View(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}

func (s *malgoStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if s.started {
		return nil
	}
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	s.started = true
	return nil
}

func (s *malgoStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *malgoStream) stopLocked() error {
	if !s.started {
		return nil
	}
	s.started = false
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

// Close stops and uninitializes the device and context
func (s *malgoStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.stopLocked(); err != nil {
		log.Printf("Warning: device stop error: %v", err)
	}
	s.device.Uninit()
	s.device = nil
	s.freeContext()
	return nil
}

func (s *malgoStream) freeContext() {
	if s.malgoCtx == nil {
		return
	}
	if err := s.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	s.malgoCtx.Free()
	s.malgoCtx = nil
}

func (s *malgoStream) SampleRate() int { return s.cfg.SampleRate }
func (s *malgoStream) Channels() int { return s.cfg.Channels }
func (s *malgoStream) Done() <-chan struct{} { return s.sig.done }
