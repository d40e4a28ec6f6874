//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Open reports the backend as unavailable unless built with -tags portaudio
package device

import "fmt"

func openPortAudio(cfg Config, cb Callback) (Stream, error) {
	return nil, fmt.Errorf("%w: %s (build with -tags portaudio)", ErrBackendUnavailable, BackendPortAudio)
}
