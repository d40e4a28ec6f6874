// ABOUTME: Unit tests for Opus encoder
// ABOUTME: Tests frame sizing, rate support and encoding
package encode

import (
	"math"
	"strings"
	"testing"

	"github.com/harperreed/liveeffect-go/pkg/audio"
)

func TestSupportsOpus(t *testing.T) {
	tests := []struct {
		rate int
		want bool
	}{
		{8000, true},
		{12000, true},
		{16000, true},
		{24000, true},
		{48000, true},
		{44100, false},
		{96000, false},
	}
	for _, tt := range tests {
		if got := SupportsOpus(tt.rate); got != tt.want {
			t.Errorf("SupportsOpus(%d) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestOpusFrameSamples(t *testing.T) {
	if got := OpusFrameSamples(48000, 2); got != 1920 {
		t.Errorf("OpusFrameSamples(48000, 2) = %d, want 1920", got)
	}
	if got := OpusFrameSamples(16000, 1); got != 320 {
		t.Errorf("OpusFrameSamples(16000, 1) = %d, want 320", got)
	}
}

func TestNewOpus(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		errContains string
	}{
		{"valid stereo", audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16}, ""},
		{"valid mono 16k", audio.Format{Codec: "opus", SampleRate: 16000, Channels: 1, BitDepth: 16}, ""},
		{"invalid codec", audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2}, "invalid codec"},
		{"unsupported rate", audio.Format{Codec: "opus", SampleRate: 44100, Channels: 2}, "unsupported opus sample rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewOpus(tt.format)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewOpus() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewOpus() unexpected error = %v", err)
			}
			encoder.Close()
		})
	}
}

func TestOpusEncoder_Encode(t *testing.T) {
	format := audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16}
	encoder, err := NewOpus(format)
	if err != nil {
		t.Fatalf("NewOpus() failed: %v", err)
	}
	defer encoder.Close()

	frame := make([]int16, OpusFrameSamples(48000, 2))
	for i := 0; i < len(frame)/2; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/48000))
		frame[i*2] = v
		frame[i*2+1] = v
	}

	packet, err := encoder.Encode(frame)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if len(packet) == 0 || len(packet) > maxOpusPacket {
		t.Errorf("unexpected packet size %d", len(packet))
	}

	if _, err := encoder.Encode(frame[:100]); err == nil {
		t.Error("expected error for short frame")
	}
}
