// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and float32 <-> PCM16 sample conversion
// Package audio provides fundamental audio types and sample conversion.
//
// Samples inside the duplex pipeline are interleaved float32 values in
// [-1.0, 1.0]. Anything leaving the process (recordings, the monitor tap) is
// signed 16-bit PCM:
//
//	pcm := make([]int16, len(block))
//	n := audio.ConvertFloatToPCM16(block, pcm)
//
// FloatToInt16 follows standard linear PCM scaling: 0.5 becomes 16384 and
// out-of-range input is clamped.
package audio
