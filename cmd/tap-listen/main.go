// ABOUTME: Entry point for the monitor tap listener
// ABOUTME: Finds a tap via mDNS (or -server), decodes frames and plays them through oto
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/liveeffect-go/internal/discovery"
	"github.com/harperreed/liveeffect-go/internal/tap"
	"github.com/harperreed/liveeffect-go/pkg/audio/decode"
	"github.com/harperreed/liveeffect-go/pkg/audio/device"
)

var (
	serverAddr = flag.String("server", "", "Manual tap address host:port (skip mDNS)")
	name       = flag.String("name", "", "Listener friendly name (default: hostname-tap-listener)")
	logFile    = flag.String("log-file", "tap-listen.log", "Log file path")
	timeout    = flag.Duration("discover-timeout", 10*time.Second, "How long to browse for a tap")
)

func main() {
	flag.Parse()

	// Log to both file and stdout
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	listenerName := *name
	if listenerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		listenerName = fmt.Sprintf("%s-tap-listener", hostname)
	}

	addr := *serverAddr
	if addr == "" {
		addr, err = discover(*timeout)
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	client := tap.NewClient(tap.ClientConfig{ServerAddr: addr, Name: listenerName})
	err = client.Connect(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer client.Close()

	format := client.Format()
	dec, err := decode.New(format)
	if err != nil {
		log.Fatalf("Failed to create decoder: %v", err)
	}
	defer dec.Close()

	out, err := device.NewOtoSink(format.SampleRate, format.Channels)
	if err != nil {
		log.Fatalf("Failed to open output: %v", err)
	}
	defer out.Close()

	log.Printf("Listening to %s (%s %dHz %dch)", addr, format.Codec, format.SampleRate, format.Channels)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var last uint64
	for {
		select {
		case <-sigChan:
			log.Printf("Shutdown signal received")
			return
		case frame, ok := <-client.Frames():
			if !ok {
				log.Printf("Tap disconnected")
				return
			}
			if last != 0 && frame.Sequence != last+1 {
				log.Printf("Lost %d frame(s) before %d", frame.Sequence-last-1, frame.Sequence)
			}
			last = frame.Sequence

			pcm, err := dec.Decode(frame.Data)
			if err != nil {
				log.Printf("Decode error: %v", err)
				continue
			}
			if err := out.WritePCM16(pcm); err != nil {
				log.Printf("Playback error: %v", err)
				return
			}
		}
	}
}

// discover browses mDNS for the first tap server
func discover(timeout time.Duration) (string, error) {
	log.Printf("Starting tap discovery...")
	disc := discovery.NewManager(discovery.Config{})
	defer disc.Stop()

	if err := disc.Browse(); err != nil {
		return "", fmt.Errorf("mDNS browse failed: %w", err)
	}

	select {
	case server := <-disc.Servers():
		log.Printf("Discovered tap %s at %s", server.Name, server.Addr())
		return server.Addr(), nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no tap found after %v", timeout)
	}
}
