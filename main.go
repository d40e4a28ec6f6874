// ABOUTME: Entry point for the LiveEffect duplex pass-through
// ABOUTME: Parses CLI flags, wires engine, recorder, tap, metrics and TUI
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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/liveeffect-go/internal/config"
	"github.com/harperreed/liveeffect-go/internal/engine"
	"github.com/harperreed/liveeffect-go/internal/metrics"
	"github.com/harperreed/liveeffect-go/internal/recorder"
	"github.com/harperreed/liveeffect-go/internal/tap"
	"github.com/harperreed/liveeffect-go/internal/ui"
	"github.com/harperreed/liveeffect-go/internal/version"
	"github.com/harperreed/liveeffect-go/pkg/audio/device"
	"github.com/harperreed/liveeffect-go/pkg/audio/source"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	backend    = flag.String("backend", "", "Audio backend: malgo, portaudio or sim")
	input      = flag.String("input", "", "Sim backend input file (mp3, flac, wav, ogg). Empty = test tone")
	record     = flag.String("record", "", "Record the monitored output to this WAV file")
	earReturn  = flag.Bool("ear-return", false, "Copy captured audio to the output")
	tapOn      = flag.Bool("tap", false, "Serve the monitor tap to network listeners")
	tapPort    = flag.Int("tap-port", 0, "Monitor tap port")
	logFile    = flag.String("log-file", "", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(cfg.Logging.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s", version.String())

	if err := run(cfg, useTUI); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("LiveEffect stopped")
}

// loadConfig loads file and environment config, then applies explicit flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "backend":
			cfg.Audio.Backend = *backend
		case "input":
			cfg.Audio.Input = *input
		case "record":
			cfg.Recorder.Path = *record
		case "ear-return":
			cfg.Audio.EarReturn = *earReturn
		case "tap":
			cfg.Tap.Enabled = *tapOn
		case "tap-port":
			cfg.Tap.Port = *tapPort
		case "log-file":
			cfg.Logging.File = *logFile
		}
	})

	if cfg.Tap.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		cfg.Tap.Name = fmt.Sprintf("%s-liveeffect", hostname)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func run(cfg *config.Config, useTUI bool) error {
	engCfg := engine.Config{
		Device: device.Config{
			Backend:         cfg.Audio.Backend,
			SampleRate:      cfg.Audio.SampleRate,
			Channels:        cfg.Audio.Channels,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		},
		QueueCapacity: cfg.Queue.Capacity,
		Overflow:      cfg.Queue.OverflowPolicy(),
		EarReturn:     cfg.Audio.EarReturn,
		NewInput: func(sampleRate, channels int) (device.SampleReader, error) {
			src, err := source.Open(cfg.Audio.Input)
			if err != nil {
				return nil, err
			}
			return source.Adapt(src, sampleRate, channels), nil
		},
	}
	if cfg.Audio.SimOutput == "oto" {
		engCfg.NewOutput = func(sampleRate, channels int) (device.Sink, error) {
			return device.NewOtoSink(sampleRate, channels)
		}
	}

	eng, err := engine.New(engCfg)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Printf("Engine close error: %v", err)
		}
	}()

	var sinks []recorder.Sink
	var wavSink *recorder.WAVSink
	if cfg.Recorder.Path != "" {
		wavSink, err = recorder.NewWAVSink(cfg.Recorder.Path, eng.SampleRate(), eng.ChannelCount())
		if err != nil {
			return err
		}
		sinks = append(sinks, wavSink)
		log.Printf("Recording to %s", cfg.Recorder.Path)
	}

	// The closures run at scrape time, after everything below is assigned
	var rec *recorder.Recorder
	var tapServer *tap.Server
	sources := metrics.Sources{
		Engine:   eng.Stats,
		Recorder: func() recorder.Stats { return rec.Stats() },
	}
	if cfg.Tap.Enabled {
		sources.Tap = func() tap.Stats { return tapServer.Stats() }
	}
	m := metrics.New(sources)

	if cfg.Tap.Enabled {
		tapServer, err = tap.New(tap.Config{
			Port:       cfg.Tap.Port,
			Name:       cfg.Tap.Name,
			Codec:      cfg.Tap.Codec,
			SampleRate: eng.SampleRate(),
			Channels:   eng.ChannelCount(),
			Advertise:  cfg.Tap.Advertise,
			Metrics:    m.Handler(),
		})
		if err != nil {
			return err
		}
		if err := tapServer.Start(); err != nil {
			return err
		}
		defer tapServer.Close()
		sinks = append(sinks, tapServer)
	}

	rec = recorder.New(eng, recorder.Options{
		BufferSamples: cfg.Recorder.BufferSamples,
		PollInterval:  cfg.Recorder.PollInterval(),
	}, sinks...)

	ctx, cancel := context.WithCancel(context.Background())
	recDone := make(chan struct{})
	go func() {
		defer close(recDone)
		if err := rec.Run(ctx); err != nil {
			log.Printf("Recorder error: %v", err)
		}
	}()

	if err := eng.SetEffectOn(true); err != nil {
		log.Printf("Failed to start effect: %v", err)
	}

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls
	tuiDone := make(chan struct{})

	if useTUI {
		controls = ui.NewControls()
		tuiProg = ui.Run(controls)
		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()

		format := eng.Format()
		tuiProg.Send(ui.StatusMsg{
			Backend:    eng.Backend(),
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
			BitDepth:   format.BitDepth,
			RecordPath: cfg.Recorder.Path,
		})
		go handleControls(eng, controls, tuiProg)
		go statsUpdateLoop(ctx, eng, rec, tapServer, tuiProg)
	} else {
		close(tuiDone)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var quit <-chan struct{}
	if controls != nil {
		quit = controls.Quit
	}
	select {
	case <-quit:
		log.Printf("Received quit signal from TUI")
	case <-sigChan:
		log.Printf("Shutdown signal received")
	}

	if err := eng.SetEffectOn(false); err != nil {
		log.Printf("Failed to stop effect: %v", err)
	}

	// The recorder drains the queue and closes every sink
	cancel()
	<-recDone

	if wavSink != nil {
		log.Printf("Recorded %.1fs to %s", wavSink.Duration().Seconds(), wavSink.Path())
	}

	if tuiProg != nil {
		tuiProg.Quit()
	}
	<-tuiDone
	return nil
}

// handleControls applies TUI commands to the engine
func handleControls(eng *engine.Engine, controls *ui.Controls, prog *tea.Program) {
	for {
		select {
		case on := <-controls.Effect:
			log.Printf("Effect toggle: %v", on)
			if err := eng.SetEffectOn(on); err != nil {
				log.Printf("Effect toggle failed: %v", err)
				prog.Send(ui.StatusMsg{Err: err})
			}
		case on := <-controls.EarReturn:
			log.Printf("Ear return toggle: %v", on)
			eng.EnableEarReturn(on)
		}
	}
}

// statsUpdateLoop periodically updates TUI with engine statistics
func statsUpdateLoop(ctx context.Context, eng *engine.Engine, rec *recorder.Recorder, tapServer *tap.Server, prog *tea.Program) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	format := eng.Format()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := eng.Stats()
			counters := &ui.Counters{
				QueueDepth:    stats.Queue.Depth,
				QueueCapacity: stats.Queue.Capacity,
				Dropped:       stats.Queue.Dropped,
				Recorded:      format.Duration(int(rec.Stats().Samples)),
			}
			if tapServer != nil {
				counters.Listeners = tapServer.Stats().Listeners
			}

			effectOn := stats.EffectOn
			earOn := stats.EarReturn
			prog.Send(ui.StatusMsg{
				EffectOn:  &effectOn,
				EarReturn: &earOn,
				Counters:  counters,
			})
		}
	}
}
