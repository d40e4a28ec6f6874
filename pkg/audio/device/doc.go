// ABOUTME: Duplex audio device package
// ABOUTME: Opens a capture+playback stream on PortAudio, miniaudio or a simulated clock
// Package device opens full-duplex audio streams and drives a callback with
// interleaved float32 input and output blocks.
//
// Backends:
//   - "portaudio": PortAudio default devices (build with -tags portaudio)
//   - "malgo": miniaudio duplex device via malgo
//   - "sim": a software clock that reads input from a SampleReader and writes
//     output to a Sink (discarded by default, or played through oto)
//
// Example:
//
//	stream, err := device.Open(device.Config{
//		Backend:         device.BackendMalgo,
//		SampleRate:      48000,
//		Channels:        2,
//		FramesPerBuffer: 256,
//	}, func(in []float32, inFrames int, out []float32, outFrames int) duplex.DataCallbackResult {
//		return pass.OnBothStreamsReady(in, inFrames, out, outFrames, 2)
//	})
//	err = stream.Start()
//	<-stream.Done()
//	stream.Close()
package device
