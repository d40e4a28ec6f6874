// ABOUTME: Package tap streams the live effect output to remote listeners
// ABOUTME: over websockets, with an optional Opus codec and mDNS discovery
// Package tap implements a small monitoring protocol: a listener says
// listener/hello, the server answers tap/hello with the stream format and
// then pushes numbered binary frames. The server is a recorder sink, so it
// sees exactly the PCM that is written to disk.
package tap
