// ABOUTME: PCM audio decoder
// ABOUTME: Decodes little-endian 16-bit PCM bytes to int16 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/harperreed/liveeffect-go/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct{}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}
	if format.BitDepth != 0 && format.BitDepth != audio.BitsPerSample {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}
	return &PCMDecoder{}, nil
}

// Decode converts s16le bytes to samples. A trailing odd byte is ignored.
func (d *PCMDecoder) Decode(data []byte) ([]int16, error) {
	numSamples := len(data) / 2
	samples := make([]int16, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
