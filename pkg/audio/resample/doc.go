// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts interleaved float32 audio between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates and keeps
// the last frame of each block so consecutive blocks join without a gap.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out := make([]float32, r.OutputSamplesNeeded(len(in)))
//	n := r.Resample(in, out)
package resample
