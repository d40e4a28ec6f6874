// ABOUTME: Input sources for the simulated duplex device
// ABOUTME: Test tone and MP3, FLAC, WAV and Ogg Vorbis file decoders
// Package source provides interleaved float32 audio sources.
//
// Open picks a decoder from the file extension, or returns a 440Hz test tone
// for an empty path. Adapt converts a source to the device format.
//
// Example:
//
//	src, err := source.Open("voice.flac")
//	src = source.Adapt(src, 48000, 2)
//	buf := make([]float32, 512)
//	n, err := src.ReadSamples(buf)
package source
