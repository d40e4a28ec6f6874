// ABOUTME: Audio encoder package for encoding PCM to wire formats
// ABOUTME: Provides Encoder interface and implementations for PCM, Opus
// Package encode provides audio encoders for the monitor tap.
//
// Supports: PCM (16-bit little-endian), Opus (20ms frames at 8, 12, 16, 24
// or 48 kHz).
//
// Example:
//
//	encoder, err := encode.New(audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2})
//	packet, err := encoder.Encode(frame)
package encode
