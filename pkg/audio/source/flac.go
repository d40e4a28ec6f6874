// ABOUTME: FLAC file source
// ABOUTME: Decodes frames with mewkiz/flac and interleaves them as float32
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// FLAC reads from a FLAC file
type FLAC struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	scale      float32

	pending []float32
	eof     bool
}

// OpenFLAC opens a FLAC file
func OpenFLAC(path string) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &FLAC{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		scale:      float32(int64(1) << (info.BitsPerSample - 1)),
	}, nil
}

func (s *FLAC) ReadSamples(dst []float32) (int, error) {
	want := wholeFrames(len(dst), s.channels)
	written := 0

	for written < want {
		if len(s.pending) == 0 {
			if s.eof {
				break
			}
			if err := s.decodeFrame(); err != nil {
				if errors.Is(err, io.EOF) {
					s.eof = true
					break
				}
				return written, err
			}
			continue
		}
		n := copy(dst[written:want], s.pending)
		s.pending = s.pending[n:]
		written += n
	}

	if written == 0 && s.eof {
		return 0, io.EOF
	}
	return written, nil
}

// decodeFrame parses the next FLAC frame into pending
func (s *FLAC) decodeFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		return err
	}

	n := int(frame.BlockSize) * s.channels
	buf := s.pending[:0]
	if cap(buf) < n {
		buf = make([]float32, 0, n)
	}
	for i := 0; i < int(frame.BlockSize); i++ {
		for ch := 0; ch < s.channels; ch++ {
			buf = append(buf, float32(frame.Subframes[ch].Samples[i])/s.scale)
		}
	}
	s.pending = buf
	return nil
}

func (s *FLAC) SampleRate() int { return s.sampleRate }
func (s *FLAC) Channels() int   { return s.channels }
func (s *FLAC) Close() error {
	return s.file.Close()
}
