// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats and float32 <-> 16-bit PCM conversion
package audio

import (
	"math"
	"time"
)

const (
	// BitsPerSample is the width of exported PCM samples.
	BitsPerSample = 16

	// pcm16Scale maps [-1.0, 1.0) onto the signed 16-bit range.
	pcm16Scale = 32768.0
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// BytesPerFrame returns the size of one interleaved frame in bytes
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitDepth / 8
}

// Duration returns how long the given number of interleaved samples plays for
func (f Format) Duration(samples int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := samples / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// FloatToInt16 converts a float sample in [-1.0, 1.0] to 16-bit PCM.
// Values are scaled by 32768, rounded to nearest (ties to even) and clamped,
// so 0.5 maps to 16384, 1.0 to 32767 and -1.0 to -32768. NaN maps to 0.
func FloatToInt16(x float32) int16 {
	v := math.RoundToEven(float64(x) * pcm16Scale)
	switch {
	case v != v:
		return 0
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// Int16ToFloat converts a 16-bit PCM sample to a float in [-1.0, 1.0)
func Int16ToFloat(sample int16) float32 {
	return float32(sample) / pcm16Scale
}

// ConvertFloatToPCM16 converts min(len(src), len(dst)) samples and returns
// the number converted.
func ConvertFloatToPCM16(src []float32, dst []int16) int {
	n := min(len(src), len(dst))
	for i := 0; i < n; i++ {
		dst[i] = FloatToInt16(src[i])
	}
	return n
}

// ConvertPCM16ToFloat converts min(len(src), len(dst)) samples and returns
// the number converted.
func ConvertPCM16ToFloat(src []int16, dst []float32) int {
	n := min(len(src), len(dst))
	for i := 0; i < n; i++ {
		dst[i] = Int16ToFloat(src[i])
	}
	return n
}
