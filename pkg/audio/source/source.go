// ABOUTME: Audio source abstraction for reading from files or generating test tones
// ABOUTME: Selects a decoder by file extension
package source

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned by Open for unknown file extensions
var ErrUnsupportedFormat = errors.New("source: unsupported audio format")

// Source provides interleaved float32 samples in [-1, 1]
type Source interface {
	// ReadSamples fills dst with whole frames and returns the number of
	// samples written. It returns io.EOF once the source is exhausted.
	ReadSamples(dst []float32) (int, error)
	SampleRate() int
	Channels() int
	Close() error
}

// Open creates a source from a file path. An empty path yields a 440Hz tone
// at 48kHz stereo.
func Open(path string) (Source, error) {
	if path == "" {
		return NewTone(440, 48000, 2), nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		src Source
		err error
	)
	switch ext {
	case ".mp3":
		src, err = OpenMP3(path)
	case ".flac":
		src, err = OpenFLAC(path)
	case ".wav":
		src, err = OpenWAV(path)
	case ".ogg", ".oga":
		src, err = OpenOgg(path)
	default:
		return nil, fmt.Errorf("%w: %q (supported: .mp3, .flac, .wav, .ogg)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("Loaded %s: %s (%d Hz, %d channels)",
		strings.TrimPrefix(ext, "."), filepath.Base(path), src.SampleRate(), src.Channels())
	return src, nil
}

// wholeFrames trims n samples down to a multiple of channels
func wholeFrames(n, channels int) int {
	if channels <= 1 {
		return n
	}
	return n - n%channels
}
