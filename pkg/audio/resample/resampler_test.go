// ABOUTME: Tests for the linear resampler
// ABOUTME: Identity, upsampling and block continuity
package resample

import (
	"math"
	"testing"
)

func TestResampleIdentityIsContinuous(t *testing.T) {
	r := New(48000, 48000, 1)
	var got []float32
	out := make([]float32, 16)

	n := r.Resample([]float32{1, 2, 3, 4}, out)
	got = append(got, out[:n]...)
	n = r.Resample([]float32{5, 6}, out)
	got = append(got, out[:n]...)

	want := []float32{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestResampleUpsampleInterpolates(t *testing.T) {
	r := New(24000, 48000, 1)
	var got []float32
	out := make([]float32, 16)

	n := r.Resample([]float32{0, 1}, out)
	got = append(got, out[:n]...)
	n = r.Resample([]float32{2}, out)
	got = append(got, out[:n]...)

	want := []float32{0, 0.5, 1, 1.5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("got[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestResampleStereoKeepsChannels(t *testing.T) {
	r := New(96000, 48000, 2)
	in := []float32{0, 1, 0, 1, 0, 1, 0, 1, 0, 1}
	out := make([]float32, r.OutputSamplesNeeded(len(in)))
	n := r.Resample(in, out)
	if n == 0 || n%2 != 0 {
		t.Fatalf("unexpected output size %d", n)
	}
	for i := 0; i < n; i += 2 {
		if out[i] != 0 || out[i+1] != 1 {
			t.Fatalf("channels mixed at frame %d: %v", i/2, out[i:i+2])
		}
	}
}

func TestResampleOutputCapacity(t *testing.T) {
	tests := []struct {
		name   string
		in     int
		out    int
		blocks int
	}{
		{"44.1k to 48k", 44100, 48000, 10},
		{"48k to 16k", 48000, 16000, 10},
		{"8k to 48k", 8000, 48000, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.in, tt.out, 2)
			in := make([]float32, 882)
			total := 0
			for b := 0; b < tt.blocks; b++ {
				out := make([]float32, r.OutputSamplesNeeded(len(in)))
				n := r.Resample(in, out)
				if n >= len(out) {
					t.Fatalf("output buffer filled completely (%d), capacity too small", n)
				}
				total += n
			}
			expected := float64(len(in)*tt.blocks) * float64(tt.out) / float64(tt.in)
			if math.Abs(float64(total)-expected) > 16 {
				t.Errorf("produced %d samples, expected about %.0f", total, expected)
			}
		})
	}
}

func TestResampleEmptyInput(t *testing.T) {
	r := New(44100, 48000, 2)
	if n := r.Resample(nil, make([]float32, 8)); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}
