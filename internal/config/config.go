// ABOUTME: Application configuration from YAML, .env and LIVEEFFECT_* variables
// ABOUTME: Defaults first, then file, then environment; flags override in main
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/liveeffect-go/pkg/audio/device"
	"github.com/harperreed/liveeffect-go/pkg/duplex"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes every environment override
const EnvPrefix = "LIVEEFFECT_"

// Config represents the complete application configuration
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Queue    QueueConfig    `yaml:"queue"`
	Recorder RecorderConfig `yaml:"recorder"`
	Tap      TapConfig      `yaml:"tap"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AudioConfig selects the duplex device and its format
type AudioConfig struct {
	Backend         string `yaml:"backend"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	FramesPerBuffer int    `yaml:"frames_per_buffer"`
	EarReturn       bool   `yaml:"ear_return"`

	// Input and SimOutput only apply to the sim backend
	Input     string `yaml:"input"`
	SimOutput string `yaml:"sim_output"`
}

// QueueConfig sizes the cache queue
type QueueConfig struct {
	Capacity int    `yaml:"capacity"`
	Overflow string `yaml:"overflow"`
}

// RecorderConfig controls the consumer goroutine
type RecorderConfig struct {
	Path           string `yaml:"path"`
	BufferSamples  int    `yaml:"buffer_samples"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
}

// TapConfig controls the monitor tap server
type TapConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Codec     string `yaml:"codec"`
	Name      string `yaml:"name"`
	Advertise bool   `yaml:"advertise"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	File string `yaml:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:         device.BackendMalgo,
			SampleRate:      device.DefaultSampleRate,
			Channels:        device.DefaultChannels,
			FramesPerBuffer: device.DefaultFramesPerBuffer,
			SimOutput:       "discard",
		},
		Queue: QueueConfig{
			Capacity: duplex.DefaultQueueCapacity,
			Overflow: duplex.DropOldest.String(),
		},
		Recorder: RecorderConfig{
			BufferSamples:  1024,
			PollIntervalMS: 5,
		},
		Tap: TapConfig{
			Port:      8937,
			Codec:     "pcm",
			Advertise: true,
		},
		Logging: LoggingConfig{
			File: "liveeffect.log",
		},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
// A .env file in the working directory is loaded if present; variables
// already set in the environment win over it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment. A missing file
// is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays LIVEEFFECT_* environment variables
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"BACKEND":        &c.Audio.Backend,
		"INPUT":          &c.Audio.Input,
		"SIM_OUTPUT":     &c.Audio.SimOutput,
		"QUEUE_OVERFLOW": &c.Queue.Overflow,
		"RECORD":         &c.Recorder.Path,
		"TAP_CODEC":      &c.Tap.Codec,
		"TAP_NAME":       &c.Tap.Name,
		"LOG_FILE":       &c.Logging.File,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SAMPLE_RATE":       &c.Audio.SampleRate,
		"CHANNELS":          &c.Audio.Channels,
		"FRAMES_PER_BUFFER": &c.Audio.FramesPerBuffer,
		"QUEUE_CAPACITY":    &c.Queue.Capacity,
		"POLL_INTERVAL_MS":  &c.Recorder.PollIntervalMS,
		"TAP_PORT":          &c.Tap.Port,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalid, EnvPrefix, key, v)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"EAR_RETURN":    &c.Audio.EarReturn,
		"TAP":           &c.Tap.Enabled,
		"TAP_ADVERTISE": &c.Tap.Advertise,
	}
	for key, dst := range bools {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalid, EnvPrefix, key, v)
		}
		*dst = b
	}
	return nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}
	if err := c.Recorder.Validate(); err != nil {
		return fmt.Errorf("recorder config: %w", err)
	}
	if err := c.Tap.Validate(); err != nil {
		return fmt.Errorf("tap config: %w", err)
	}
	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	known := false
	for _, b := range device.Backends() {
		if strings.EqualFold(a.Backend, b) {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("%w: backend must be one of %v, got %q", ErrInvalid, device.Backends(), a.Backend)
	}

	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("%w: sample_rate must be between 8000 and 192000, got %d", ErrInvalid, a.SampleRate)
	}
	if a.Channels < 1 || a.Channels > 8 {
		return fmt.Errorf("%w: channels must be between 1 and 8, got %d", ErrInvalid, a.Channels)
	}
	if a.FramesPerBuffer < 16 || a.FramesPerBuffer > 8192 {
		return fmt.Errorf("%w: frames_per_buffer must be between 16 and 8192, got %d", ErrInvalid, a.FramesPerBuffer)
	}

	switch a.SimOutput {
	case "discard", "oto":
	default:
		return fmt.Errorf("%w: sim_output must be 'discard' or 'oto', got %q", ErrInvalid, a.SimOutput)
	}
	return nil
}

// Validate validates queue configuration
func (q *QueueConfig) Validate() error {
	if q.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalid, q.Capacity)
	}
	if _, err := duplex.ParseOverflowPolicy(q.Overflow); err != nil {
		return fmt.Errorf("%w: overflow: %w", ErrInvalid, err)
	}
	return nil
}

// Validate validates recorder configuration
func (r *RecorderConfig) Validate() error {
	if r.BufferSamples < 1 {
		return fmt.Errorf("%w: buffer_samples must be at least 1, got %d", ErrInvalid, r.BufferSamples)
	}
	if r.PollIntervalMS < 1 {
		return fmt.Errorf("%w: poll_interval_ms must be at least 1, got %d", ErrInvalid, r.PollIntervalMS)
	}
	return nil
}

// Validate validates tap configuration
func (t *TapConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalid, t.Port)
	}
	switch t.Codec {
	case "pcm", "opus":
	default:
		return fmt.Errorf("%w: codec must be 'pcm' or 'opus', got %q", ErrInvalid, t.Codec)
	}
	return nil
}

// OverflowPolicy returns the parsed queue overflow policy
func (q *QueueConfig) OverflowPolicy() duplex.OverflowPolicy {
	p, _ := duplex.ParseOverflowPolicy(q.Overflow)
	return p
}

// PollInterval returns the recorder poll interval as a time.Duration
func (r *RecorderConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalMS) * time.Millisecond
}
