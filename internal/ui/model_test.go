// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling, and control channel output
package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil) // Controls are optional for testing

	if model.effectOn {
		t.Error("expected effect to be off initially")
	}
	if model.earReturn {
		t.Error("expected ear return to be off initially")
	}
	if model.View() != "Loading..." {
		t.Errorf("expected loading view before a window size, got %q", model.View())
	}
}

func TestStatusMsgDevice(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		Backend:    "sim",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   16,
	})

	if model.backend != "sim" {
		t.Errorf("expected backend 'sim', got '%s'", model.backend)
	}
	if model.sampleRate != 48000 {
		t.Errorf("expected sampleRate 48000, got %d", model.sampleRate)
	}
	if model.channels != 2 {
		t.Errorf("expected channels 2, got %d", model.channels)
	}
	if model.bitDepth != 16 {
		t.Errorf("expected bitDepth 16, got %d", model.bitDepth)
	}
}

func TestStatusMsgEffectState(t *testing.T) {
	model := NewModel(nil)

	on := true
	model.applyStatus(StatusMsg{EffectOn: &on, EarReturn: &on})
	if !model.effectOn || !model.earReturn {
		t.Error("expected effect and ear return on")
	}

	// nil pointers leave state alone
	model.applyStatus(StatusMsg{})
	if !model.effectOn || !model.earReturn {
		t.Error("empty status changed effect state")
	}

	off := false
	model.applyStatus(StatusMsg{EffectOn: &off})
	if model.effectOn {
		t.Error("expected effect off")
	}
	if !model.earReturn {
		t.Error("ear return should be unchanged")
	}
}

func TestStatusMsgCounters(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		RecordPath: "take1.wav",
		Counters: &Counters{
			QueueDepth:    3,
			QueueCapacity: 256,
			Dropped:       7,
			Recorded:      1500 * time.Millisecond,
			Listeners:     2,
		},
	})

	if model.queueDepth != 3 || model.queueCapacity != 256 {
		t.Errorf("queue = %d/%d", model.queueDepth, model.queueCapacity)
	}
	if model.dropped != 7 {
		t.Errorf("expected dropped 7, got %d", model.dropped)
	}
	if model.recorded != 1500*time.Millisecond {
		t.Errorf("expected recorded 1.5s, got %v", model.recorded)
	}
	if model.listeners != 2 {
		t.Errorf("expected 2 listeners, got %d", model.listeners)
	}
	if model.recordPath != "take1.wav" {
		t.Errorf("expected record path take1.wav, got %s", model.recordPath)
	}

	// Zero counters are valid and applied
	model.applyStatus(StatusMsg{Counters: &Counters{}})
	if model.queueDepth != 0 || model.listeners != 0 {
		t.Error("zero counters were not applied")
	}
}

func TestStatusMsgError(t *testing.T) {
	model := NewModel(nil)
	model.applyStatus(StatusMsg{Err: errors.New("device lost")})
	if model.lastErr != "device lost" {
		t.Errorf("expected lastErr 'device lost', got %q", model.lastErr)
	}
}

func TestKeyHandling(t *testing.T) {
	tests := []struct {
		name          string
		keys          []tea.KeyMsg
		wantEffect    []bool
		wantEarReturn []bool
	}{
		{
			name:       "space toggles effect",
			keys:       []tea.KeyMsg{{Type: tea.KeySpace}, {Type: tea.KeySpace}},
			wantEffect: []bool{true, false},
		},
		{
			name:          "e toggles ear return",
			keys:          []tea.KeyMsg{runeKey('e')},
			wantEarReturn: []bool{true},
		},
		{
			name:          "mixed",
			keys:          []tea.KeyMsg{runeKey('e'), {Type: tea.KeySpace}, runeKey('e')},
			wantEffect:    []bool{true},
			wantEarReturn: []bool{true, false},
		},
		{
			name: "unknown key does nothing",
			keys: []tea.KeyMsg{runeKey('x')},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controls := NewControls()
			var model tea.Model = NewModel(controls)
			for _, k := range tt.keys {
				model, _ = model.Update(k)
			}

			for i, want := range tt.wantEffect {
				select {
				case got := <-controls.Effect:
					if got != want {
						t.Errorf("effect command %d = %v, want %v", i, got, want)
					}
				default:
					t.Fatalf("missing effect command %d", i)
				}
			}
			for i, want := range tt.wantEarReturn {
				select {
				case got := <-controls.EarReturn:
					if got != want {
						t.Errorf("ear return command %d = %v, want %v", i, got, want)
					}
				default:
					t.Fatalf("missing ear return command %d", i)
				}
			}
			if len(controls.Effect) != 0 || len(controls.EarReturn) != 0 {
				t.Error("unexpected extra commands")
			}
		})
	}
}

func TestQuitKey(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls)

	_, cmd := model.Update(runeKey('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}

	select {
	case <-controls.Quit:
	default:
		t.Error("expected quit signal on controls")
	}
}

func TestKeysWithoutControls(t *testing.T) {
	var model tea.Model = NewModel(nil)
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeySpace})
	if !model.(Model).effectOn {
		t.Error("effect should toggle locally without controls")
	}
}

func TestView(t *testing.T) {
	var model tea.Model = NewModel(nil)
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	on := true
	model, _ = model.Update(StatusMsg{
		Backend:    "malgo",
		SampleRate: 48000,
		Channels:   1,
		BitDepth:   16,
		EffectOn:   &on,
		Counters:   &Counters{QueueCapacity: 256, Listeners: 1},
	})

	view := model.View()
	for _, want := range []string{"LiveEffect", "malgo", "48000Hz Mono 16-bit", "● on", "1 listener(s)", "not recording"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max, width int
		filled            int
	}{
		{0, 10, 10, 0},
		{5, 10, 10, 5},
		{10, 10, 10, 10},
		{3, 0, 10, 0},
	}

	for _, tt := range tests {
		bar := renderBar(tt.value, tt.max, tt.width)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("renderBar(%d, %d, %d) filled %d, want %d", tt.value, tt.max, tt.width, got, tt.filled)
		}
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"this is longer than allowed", 10, "this is..."},
		{"", 10, ""},
		{"abcd", 4, "abcd"},
		{"abcde", 4, "a..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q",
				tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestChannelNameFunction(t *testing.T) {
	tests := []struct {
		channels int
		expected string
	}{
		{1, "Mono"},
		{2, "Stereo"},
		{6, "Stereo"},
	}

	for _, tt := range tests {
		result := channelName(tt.channels)
		if result != tt.expected {
			t.Errorf("channelName(%d) = %q, expected %q",
				tt.channels, result, tt.expected)
		}
	}
}
