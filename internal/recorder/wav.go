// ABOUTME: WAV file sink for recorded PCM
// ABOUTME: go-audio/wav encoder; the RIFF header is finalised on Close
package recorder

import (
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/harperreed/liveeffect-go/pkg/audio"
)

// WAVSink writes 16-bit PCM to a WAV file
type WAVSink struct {
	path       string
	file       *os.File
	encoder    *wav.Encoder
	buf        *goaudio.IntBuffer
	sampleRate int
	channels   int

	mu      sync.Mutex
	samples int64
	closed  bool
}

// NewWAVSink creates (or truncates) path
func NewWAVSink(path string, sampleRate, channels int) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	format := &goaudio.Format{NumChannels: channels, SampleRate: sampleRate}
	return &WAVSink{
		path:       path,
		file:       f,
		encoder:    wav.NewEncoder(f, sampleRate, audio.BitsPerSample, channels, 1),
		buf:        &goaudio.IntBuffer{Format: format, SourceBitDepth: audio.BitsPerSample},
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

// WriteSamples appends samples to the file
func (w *WAVSink) WriteSamples(samples []int16) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("wav sink %s is closed", w.path)
	}

	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, s := range samples {
		w.buf.Data[i] = int(s)
	}

	if err := w.encoder.Write(w.buf); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	w.samples += int64(len(samples))
	return nil
}

// Duration returns how much audio has been written
func (w *WAVSink) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	f := audio.Format{SampleRate: w.sampleRate, Channels: w.channels}
	return f.Duration(int(w.samples))
}

// Path returns the output file path
func (w *WAVSink) Path() string {
	return w.path
}

// Close writes the header and closes the file
func (w *WAVSink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	encErr := w.encoder.Close()
	fileErr := w.file.Close()
	if encErr != nil {
		return fmt.Errorf("failed to finalise WAV header: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("failed to close WAV file: %w", fileErr)
	}
	return nil
}
