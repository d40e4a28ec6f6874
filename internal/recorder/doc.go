// ABOUTME: Package recorder pulls PCM from the engine and fans it out
// ABOUTME: to sinks such as WAV files and the network tap
// Package recorder runs the consumer side of the live effect: a goroutine
// that repeatedly reads converted 16-bit PCM and hands it to every sink.
package recorder
