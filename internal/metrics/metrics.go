// ABOUTME: Prometheus metrics for the engine, recorder and monitor tap
// ABOUTME: Values are read from stats snapshots at scrape time on a private registry
package metrics

import (
	"net/http"

	"github.com/harperreed/liveeffect-go/internal/engine"
	"github.com/harperreed/liveeffect-go/internal/recorder"
	"github.com/harperreed/liveeffect-go/internal/tap"
	"github.com/harperreed/liveeffect-go/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "liveeffect"

// Sources supplies stats snapshots. Nil fields are not exported.
type Sources struct {
	Engine   func() engine.Stats
	Recorder func() recorder.Stats
	Tap      func() tap.Stats
}

// Metrics owns the registry and every registered collector
type Metrics struct {
	registry *prometheus.Registry
}

// New creates the registry and registers collectors for each source
func New(src Sources) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"version": version.Version},
		}, func() float64 { return 1 }),
	)

	if src.Engine != nil {
		m.registerEngine(src.Engine)
	}
	if src.Recorder != nil {
		m.registerRecorder(src.Recorder)
	}
	if src.Tap != nil {
		m.registerTap(src.Tap)
	}
	return m
}

func (m *Metrics) registerEngine(stats func() engine.Stats) {
	m.registry.MustRegister(
		gauge("effect_on", "Whether the pass-through is running", func() float64 {
			return boolFloat(stats().EffectOn)
		}),
		gauge("ear_return", "Whether captured audio is copied to the output", func() float64 {
			return boolFloat(stats().EarReturn)
		}),
		counter("callbacks_total", "Audio callbacks processed", func() float64 {
			return float64(stats().Pass.Callbacks)
		}),
		counter("padded_samples_total", "Output samples zero-filled by the pass", func() float64 {
			return float64(stats().Pass.PaddedSamples)
		}),
		counter("callback_stops_total", "Callbacks that asked the stream to stop", func() float64 {
			return float64(stats().Pass.Stops)
		}),
		counter("queue_pushed_total", "Cache entries pushed", func() float64 {
			return float64(stats().Queue.Pushed)
		}),
		counter("queue_popped_total", "Cache entries popped", func() float64 {
			return float64(stats().Queue.Popped)
		}),
		counter("queue_dropped_total", "Cache entries dropped on overflow", func() float64 {
			return float64(stats().Queue.Dropped)
		}),
		gauge("queue_depth", "Cache entries waiting to be read", func() float64 {
			return float64(stats().Queue.Depth)
		}),
		gauge("queue_capacity", "Cache queue capacity", func() float64 {
			return float64(stats().Queue.Capacity)
		}),
	)
}

func (m *Metrics) registerRecorder(stats func() recorder.Stats) {
	m.registry.MustRegister(
		counter("recorded_samples_total", "PCM samples handed to recorder sinks", func() float64 {
			return float64(stats().Samples)
		}),
		counter("recorder_sink_errors_total", "Recorder sinks removed after a write error", func() float64 {
			return float64(stats().SinkErrors)
		}),
		gauge("recorder_sinks", "Active recorder sinks", func() float64 {
			return float64(stats().Sinks)
		}),
	)
}

func (m *Metrics) registerTap(stats func() tap.Stats) {
	m.registry.MustRegister(
		gauge("tap_listeners", "Connected tap listeners", func() float64 {
			return float64(stats().Listeners)
		}),
		counter("tap_frames_total", "Frames broadcast by the tap", func() float64 {
			return float64(stats().Frames)
		}),
		counter("tap_bytes_total", "Bytes queued to tap listeners", func() float64 {
			return float64(stats().Bytes)
		}),
		counter("tap_dropped_frames_total", "Frames dropped for slow tap listeners", func() float64 {
			return float64(stats().Dropped)
		}),
	)
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func gauge(name, help string, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, fn)
}

func counter(name, help string, fn func() float64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, fn)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
