// ABOUTME: Test tone generator for audio source
// ABOUTME: Generates an endless sine wave at half amplitude
package source

import (
	"math"
	"sync"
)

// Tone generates a sine wave on every channel
type Tone struct {
	frequency  float64
	sampleRate int
	channels   int

	mu    sync.Mutex
	frame uint64
}

// NewTone creates a tone generator
func NewTone(frequency float64, sampleRate, channels int) *Tone {
	if channels < 1 {
		channels = 1
	}
	return &Tone{frequency: frequency, sampleRate: sampleRate, channels: channels}
}

func (s *Tone) ReadSamples(dst []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(dst) / s.channels
	for i := 0; i < frames; i++ {
		t := float64(s.frame+uint64(i)) / float64(s.sampleRate)
		v := float32(0.5 * math.Sin(2*math.Pi*s.frequency*t))
		for ch := 0; ch < s.channels; ch++ {
			dst[i*s.channels+ch] = v
		}
	}
	s.frame += uint64(frames)
	return frames * s.channels, nil
}

func (s *Tone) SampleRate() int { return s.sampleRate }
func (s *Tone) Channels() int   { return s.channels }
func (s *Tone) Close() error    { return nil }
