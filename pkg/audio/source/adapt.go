// ABOUTME: Format adapters for sources
// ABOUTME: Channel remixing and sample rate conversion to the device format
package source

import (
	"io"
	"log"

	"github.com/harperreed/liveeffect-go/pkg/audio/resample"
)

// Adapt wraps src so it produces the given rate and channel count
func Adapt(src Source, sampleRate, channels int) Source {
	if src.Channels() != channels {
		log.Printf("Remixing input from %d to %d channels", src.Channels(), channels)
		src = Remix(src, channels)
	}
	if src.SampleRate() != sampleRate {
		log.Printf("Resampling input from %d Hz to %d Hz", src.SampleRate(), sampleRate)
		src = Resample(src, sampleRate)
	}
	return src
}

type remixed struct {
	src      Source
	channels int
	buf      []float32
}

// Remix converts src to the given channel count. Mono is copied to every
// output channel, a downmix to mono averages, and other layouts keep the
// shared channels and silence the rest.
func Remix(src Source, channels int) Source {
	if channels < 1 {
		channels = 1
	}
	return &remixed{src: src, channels: channels}
}

func (r *remixed) ReadSamples(dst []float32) (int, error) {
	inCh, outCh := r.src.Channels(), r.channels
	frames := len(dst) / outCh
	if frames == 0 {
		return 0, nil
	}

	need := frames * inCh
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	buf := r.buf[:need]

	n, err := r.src.ReadSamples(buf)
	got := n / inCh
	for f := 0; f < got; f++ {
		in := buf[f*inCh : (f+1)*inCh]
		out := dst[f*outCh : (f+1)*outCh]
		switch {
		case inCh == 1:
			for c := range out {
				out[c] = in[0]
			}
		case outCh == 1:
			var sum float32
			for _, v := range in {
				sum += v
			}
			out[0] = sum / float32(inCh)
		default:
			k := copy(out, in)
			clear(out[k:])
		}
	}
	return got * outCh, err
}

func (r *remixed) SampleRate() int { return r.src.SampleRate() }
func (r *remixed) Channels() int   { return r.channels }
func (r *remixed) Close() error    { return r.src.Close() }

type resampled struct {
	src       Source
	rate      int
	resampler *resample.Resampler
	in        []float32
	out       []float32
	pending   []float32
	eof       bool
}

// Resample converts src to the given sample rate
func Resample(src Source, sampleRate int) Source {
	return &resampled{
		src:       src,
		rate:      sampleRate,
		resampler: resample.New(src.SampleRate(), sampleRate, src.Channels()),
	}
}

func (r *resampled) ReadSamples(dst []float32) (int, error) {
	ch := r.src.Channels()
	want := wholeFrames(len(dst), ch)
	if want == 0 {
		return 0, nil
	}

	for len(r.pending) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		read, err := r.refill(want)
		if err != nil {
			return 0, err
		}
		if read == 0 && !r.eof {
			return 0, nil
		}
	}

	n := copy(dst[:want], r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// refill pulls one block from the source and resamples it into pending. It
// returns the number of source samples read.
func (r *resampled) refill(want int) (int, error) {
	ch := r.src.Channels()
	need := max(r.resampler.InputSamplesNeeded(want), ch)
	need = wholeFrames(need, ch)
	if cap(r.in) < need {
		r.in = make([]float32, need)
	}
	in := r.in[:need]

	n, err := r.src.ReadSamples(in)
	if err == io.EOF {
		r.eof = true
	} else if err != nil {
		return 0, err
	}

	size := r.resampler.OutputSamplesNeeded(n)
	if cap(r.out) < size {
		r.out = make([]float32, size)
	}
	m := r.resampler.Resample(in[:n], r.out[:size])
	r.pending = r.out[:m]
	return n, nil
}

func (r *resampled) SampleRate() int { return r.rate }
func (r *resampled) Channels() int   { return r.src.Channels() }
func (r *resampled) Close() error    { return r.src.Close() }
