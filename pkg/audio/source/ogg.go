// ABOUTME: Ogg Vorbis file source
// ABOUTME: jfreymuth/oggvorbis already decodes to interleaved float32
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// Ogg reads from an Ogg Vorbis file
type Ogg struct {
	file   *os.File
	reader *oggvorbis.Reader
}

// OpenOgg opens an Ogg Vorbis file
func OpenOgg(path string) (*Ogg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Ogg file: %w", err)
	}

	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}
	return &Ogg{file: f, reader: reader}, nil
}

// ReadSamples returns whole frames; the reader counts in samples.
func (s *Ogg) ReadSamples(dst []float32) (int, error) {
	want := wholeFrames(len(dst), s.reader.Channels())
	if want == 0 {
		return 0, nil
	}
	n, err := s.reader.Read(dst[:want])
	if err == io.EOF && n > 0 {
		return n, nil
	}
	return n, err
}

func (s *Ogg) SampleRate() int { return s.reader.SampleRate() }
func (s *Ogg) Channels() int   { return s.reader.Channels() }
func (s *Ogg) Close() error {
	return s.file.Close()
}
