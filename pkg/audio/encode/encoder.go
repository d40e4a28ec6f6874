// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all audio encoders
package encode

import (
	"fmt"

	"github.com/harperreed/liveeffect-go/pkg/audio"
)

// Encoder encodes 16-bit PCM samples to a wire format
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []int16) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// New creates an encoder for format.Codec ("pcm" or "opus")
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %q", format.Codec)
	}
}
