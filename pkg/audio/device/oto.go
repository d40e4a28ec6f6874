// ABOUTME: Oto playback sink for the sim backend and tap listeners
// ABOUTME: Streams 16-bit PCM through a pipe into a persistent oto player
package device

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/harperreed/liveeffect-go/pkg/audio"
)

// oto allows one context per process, so it is shared between sinks
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

func sharedOtoContext(sampleRate, channels int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != sampleRate || otoChannels != channels {
			return nil, fmt.Errorf("oto context already running at %dHz %dch, cannot switch to %dHz %dch",
				otoRate, otoChannels, sampleRate, channels)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoCtx, otoRate, otoChannels = ctx, sampleRate, channels
	log.Printf("Audio output initialized: %dHz, %d channels (oto)", sampleRate, channels)
	return ctx, nil
}

// OtoSink plays blocks through the default output device
type OtoSink struct {
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	closed     atomic.Bool

	mu  sync.Mutex
	pcm []int16
	buf []byte
}

// NewOtoSink creates a sink playing interleaved audio at the given format
func NewOtoSink(sampleRate, channels int) (*OtoSink, error) {
	ctx, err := sharedOtoContext(sampleRate, channels)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()

	return &OtoSink{player: player, pipeReader: pr, pipeWriter: pw}, nil
}

// WriteSamples converts float samples to PCM16 and queues them for playback.
// Blocks until the player has taken the data.
func (o *OtoSink) WriteSamples(samples []float32) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cap(o.pcm) < len(samples) {
		o.pcm = make([]int16, len(samples))
	}
	o.pcm = o.pcm[:len(samples)]
	audio.ConvertFloatToPCM16(samples, o.pcm)
	return o.writeLocked(o.pcm)
}

// WritePCM16 queues 16-bit samples for playback
func (o *OtoSink) WritePCM16(samples []int16) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.writeLocked(samples)
}

func (o *OtoSink) writeLocked(samples []int16) error {
	if o.closed.Load() {
		return io.ErrClosedPipe
	}

	if cap(o.buf) < len(samples)*2 {
		o.buf = make([]byte, len(samples)*2)
	}
	o.buf = o.buf[:len(samples)*2]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(o.buf[i*2:], uint16(s))
	}

	if _, err := o.pipeWriter.Write(o.buf); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close stops playback and unblocks a pending write. The shared oto context
// stays alive.
func (o *OtoSink) Close() error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}

	o.pipeWriter.Close()
	err := o.player.Close()
	o.pipeReader.Close()
	return err
}
