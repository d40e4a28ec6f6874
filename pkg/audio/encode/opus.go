// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms frames of int16 samples to Opus packets
package encode

import (
	"fmt"

	"github.com/harperreed/liveeffect-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket is the largest packet libopus produces
const maxOpusPacket = 4000

// SupportsOpus reports whether libopus accepts the sample rate
func SupportsOpus(sampleRate int) bool {
	switch sampleRate {
	case 8000, 12000, 16000, 24000, 48000:
		return true
	}
	return false
}

// OpusFrameSamples returns the interleaved sample count of one 20ms frame
func OpusFrameSamples(sampleRate, channels int) int {
	return sampleRate / 50 * channels
}

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder      *opus.Encoder
	frameSamples int
	buf          []byte
}

// NewOpus creates a new Opus encoder
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}
	if !SupportsOpus(format.SampleRate) {
		return nil, fmt.Errorf("unsupported opus sample rate: %d", format.SampleRate)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:      encoder,
		frameSamples: OpusFrameSamples(format.SampleRate, format.Channels),
		buf:          make([]byte, maxOpusPacket),
	}, nil
}

// Encode converts exactly one 20ms frame of samples to an Opus packet
func (e *OpusEncoder) Encode(samples []int16) ([]byte, error) {
	if len(samples) != e.frameSamples {
		return nil, fmt.Errorf("opus frame must be %d samples, got %d", e.frameSamples, len(samples))
	}

	n, err := e.encoder.Encode(samples, e.buf)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	out := make([]byte, n)
	copy(out, e.buf[:n])
	return out, nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
