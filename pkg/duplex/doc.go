// ABOUTME: Full-duplex pass-through core with a captured-audio cache queue
// ABOUTME: Real-time callback, owned cache entries, bounded FIFO and PCM16 reader
// Package duplex implements the real-time half of a full-duplex audio
// pass-through.
//
// A FullDuplexPass is driven by the audio device callback. When ear return
// (monitoring) is enabled it copies each input block to the output, pads the
// output with silence when the output block is longer, and hands a copy of the
// captured samples to a CacheQueue. A Reader on another goroutine pops those
// entries and converts them to 16-bit PCM.
//
// Example:
//
//	q := duplex.NewCacheQueue(256, duplex.DropOldest)
//	pass := duplex.NewFullDuplexPass(q)
//	pass.SetEarReturn(true)
//
//	// inside the device callback
//	pass.OnBothStreamsReady(in, inFrames, out, outFrames, channels)
//
//	// on a consumer goroutine
//	r := duplex.NewReader(q)
//	pcm := make([]int16, 1024)
//	n := r.Read(pcm)
//
// The callback path never logs, never blocks on I/O and draws its cache
// buffers from a pool, so in steady state it does not allocate sample memory.
package duplex
