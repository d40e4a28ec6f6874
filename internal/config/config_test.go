// ABOUTME: Tests for configuration loading
// ABOUTME: Defaults, YAML overlay, environment overrides and validation
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/liveeffect-go/pkg/duplex"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liveeffect.yaml")
	yaml := `
audio:
  backend: sim
  sample_rate: 16000
  channels: 1
  input: voice.wav
queue:
  capacity: 32
  overflow: drop-newest
tap:
  enabled: true
  codec: opus
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Audio.Backend != "sim" || cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Errorf("audio section not loaded: %+v", cfg.Audio)
	}
	if cfg.Audio.FramesPerBuffer != 256 {
		t.Errorf("default frames_per_buffer lost: %d", cfg.Audio.FramesPerBuffer)
	}
	if cfg.Queue.Capacity != 32 || cfg.Queue.OverflowPolicy() != duplex.DropNewest {
		t.Errorf("queue section not loaded: %+v", cfg.Queue)
	}
	if !cfg.Tap.Enabled || cfg.Tap.Codec != "opus" || cfg.Tap.Port != 8937 {
		t.Errorf("tap section not loaded: %+v", cfg.Tap)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("audio: [unclosed"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LIVEEFFECT_BACKEND", "sim")
	t.Setenv("LIVEEFFECT_SAMPLE_RATE", "44100")
	t.Setenv("LIVEEFFECT_EAR_RETURN", "true")
	t.Setenv("LIVEEFFECT_RECORD", "out.wav")
	t.Setenv("LIVEEFFECT_TAP", "1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Audio.Backend != "sim" || cfg.Audio.SampleRate != 44100 {
		t.Errorf("env not applied: %+v", cfg.Audio)
	}
	if !cfg.Audio.EarReturn || !cfg.Tap.Enabled {
		t.Error("boolean env not applied")
	}
	if cfg.Recorder.Path != "out.wav" {
		t.Errorf("Recorder.Path = %q, want out.wav", cfg.Recorder.Path)
	}
}

func TestApplyEnvBadValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LIVEEFFECT_CHANNELS", "two"},
		{"LIVEEFFECT_EAR_RETURN", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := Default().ApplyEnv()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	os.WriteFile(path, []byte("LIVEEFFECT_TAP_NAME=studio\n"), 0o644)
	t.Setenv("LIVEEFFECT_TAP_NAME", "")
	os.Unsetenv("LIVEEFFECT_TAP_NAME")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("LIVEEFFECT_TAP_NAME"); got != "studio" {
		t.Errorf("LIVEEFFECT_TAP_NAME = %q, want studio", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Audio.Backend = "jack" }},
		{"low sample rate", func(c *Config) { c.Audio.SampleRate = 100 }},
		{"zero channels", func(c *Config) { c.Audio.Channels = 0 }},
		{"tiny buffer", func(c *Config) { c.Audio.FramesPerBuffer = 1 }},
		{"bad sim output", func(c *Config) { c.Audio.SimOutput = "speaker" }},
		{"zero capacity", func(c *Config) { c.Queue.Capacity = 0 }},
		{"bad overflow", func(c *Config) { c.Queue.Overflow = "block" }},
		{"zero buffer samples", func(c *Config) { c.Recorder.BufferSamples = 0 }},
		{"zero poll interval", func(c *Config) { c.Recorder.PollIntervalMS = 0 }},
		{"tap bad port", func(c *Config) {
			c.Tap.Enabled = true
			c.Tap.Port = 70000
		}},
		{"tap bad codec", func(c *Config) {
			c.Tap.Enabled = true
			c.Tap.Codec = "mp3"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestDisabledTapSkipsValidation(t *testing.T) {
	cfg := Default()
	cfg.Tap.Port = 0
	cfg.Tap.Codec = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled tap should not be validated: %v", err)
	}
}

func TestPollInterval(t *testing.T) {
	r := RecorderConfig{PollIntervalMS: 5}
	if r.PollInterval() != 5*time.Millisecond {
		t.Errorf("PollInterval = %v, want 5ms", r.PollInterval())
	}
}
