// ABOUTME: Audio decoder package for decoding wire formats to PCM
// ABOUTME: Provides Decoder interface and implementations for PCM, Opus
// Package decode provides audio decoders used by tap listeners.
//
// Supports: PCM (16-bit little-endian), Opus
//
// Example:
//
//	decoder, err := decode.New(format)
//	samples, err := decoder.Decode(payload)
package decode
