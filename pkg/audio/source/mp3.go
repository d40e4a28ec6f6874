// ABOUTME: MP3 file source
// ABOUTME: go-mp3 decodes to 16-bit stereo which is scaled to float32
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
	"github.com/harperreed/liveeffect-go/pkg/audio"
)

// MP3 reads from an MP3 file
type MP3 struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
	eof     bool
}

// OpenMP3 opens an MP3 file
func OpenMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &MP3{file: f, decoder: decoder}, nil
}

func (s *MP3) ReadSamples(dst []float32) (int, error) {
	if s.eof {
		return 0, io.EOF
	}

	want := wholeFrames(len(dst), 2) * 2
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	buf := s.buf[:want]

	n, err := io.ReadFull(s.decoder, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.eof = true
	case err != nil:
		return 0, fmt.Errorf("mp3 decode: %w", err)
	}

	samples := wholeFrames(n/2, 2)
	for i := 0; i < samples; i++ {
		dst[i] = audio.Int16ToFloat(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	if samples == 0 && s.eof {
		return 0, io.EOF
	}
	return samples, nil
}

func (s *MP3) SampleRate() int { return s.decoder.SampleRate() }

// Channels is always 2: go-mp3 outputs stereo
func (s *MP3) Channels() int { return 2 }

func (s *MP3) Close() error {
	return s.file.Close()
}
