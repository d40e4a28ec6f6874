// ABOUTME: WAV file source
// ABOUTME: go-audio/wav PCM decoder normalised by bit depth
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV reads PCM from a WAV file
type WAV struct {
	file       *os.File
	decoder    *wav.Decoder
	sampleRate int
	channels   int
	scale      float32
	intBuf     *goaudio.IntBuffer
	eof        bool
}

// OpenWAV opens a PCM WAV file
func OpenWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("not a valid WAV file: %s", path)
	}

	format := decoder.Format()
	if format == nil || format.NumChannels < 1 {
		f.Close()
		return nil, fmt.Errorf("unsupported WAV layout: %s", path)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}

	return &WAV{
		file:       f,
		decoder:    decoder,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      float32(int64(1) << (bitDepth - 1)),
	}, nil
}

func (s *WAV) ReadSamples(dst []float32) (int, error) {
	if s.eof {
		return 0, io.EOF
	}
	want := wholeFrames(len(dst), s.channels)
	if want == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < want {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, want),
			Format: s.decoder.Format(),
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:want]
	}

	n, err := s.decoder.PCMBuffer(s.intBuf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("wav decode: %w", err)
	}
	if n < want || err != nil {
		s.eof = true
	}
	n = wholeFrames(n, s.channels)
	for i := 0; i < n; i++ {
		dst[i] = float32(s.intBuf.Data[i]) / s.scale
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *WAV) SampleRate() int { return s.sampleRate }
func (s *WAV) Channels() int   { return s.channels }
func (s *WAV) Close() error {
	return s.file.Close()
}
