// ABOUTME: Bubbletea model for the live effect TUI
// ABOUTME: Defines application state, key handling and rendering
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Device
	backend    string
	sampleRate int
	channels   int
	bitDepth   int

	// Effect state
	effectOn  bool
	earReturn bool

	// Counters
	queueDepth    int
	queueCapacity int
	dropped       uint64
	recorded      time.Duration
	recordPath    string
	listeners     int

	lastErr string

	controls *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderState()
	s += m.renderStats()
	s += m.renderHelp()

	return s
}

// renderHeader renders backend and format
func (m Model) renderHeader() string {
	format := "unknown"
	if m.sampleRate > 0 {
		format = fmt.Sprintf("%dHz %s %d-bit", m.sampleRate, channelName(m.channels), m.bitDepth)
	}

	return fmt.Sprintf(`┌─ LiveEffect ─────────────────────────────────────────┐
│ Backend: %-43s │
│ Format:  %-43s │
├──────────────────────────────────────────────────────┤
`, truncate(m.backend, 43), format)
}

// renderState renders effect and ear return
func (m Model) renderState() string {
	effect := "○ off"
	if m.effectOn {
		effect = "● on"
	}
	ear := "off"
	if m.earReturn {
		ear = "on"
	}

	s := fmt.Sprintf("│ Effect:     %-40s │\n", effect)
	s += fmt.Sprintf("│ Ear return: %-40s │\n", ear)
	if m.lastErr != "" {
		s += fmt.Sprintf("│ Error: %-45s │\n", truncate(m.lastErr, 45))
	}
	return s
}

// renderStats renders queue, recorder and tap counters
func (m Model) renderStats() string {
	queueBar := renderBar(m.queueDepth, m.queueCapacity, 10)

	record := "not recording"
	if m.recordPath != "" {
		record = fmt.Sprintf("%.1fs → %s", m.recorded.Seconds(), m.recordPath)
	}

	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Queue:  [%s] %d/%d  Dropped: %d%-8s │
│ Record: %-44s │
│ Tap:    %d listener(s)%-31s │
│                                                      │
`, queueBar, m.queueDepth, m.queueCapacity, m.dropped, "", truncate(record, 44), m.listeners, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ space:Effect  e:Ear return  q:Quit                  │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case " ", "space":
		m.effectOn = !m.effectOn
		m.sendBool(m.controlEffect(), m.effectOn)
	case "e":
		m.earReturn = !m.earReturn
		m.sendBool(m.controlEarReturn(), m.earReturn)
	}

	return m, nil
}

func (m Model) controlEffect() chan bool {
	if m.controls == nil {
		return nil
	}
	return m.controls.Effect
}

func (m Model) controlEarReturn() chan bool {
	if m.controls == nil {
		return nil
	}
	return m.controls.EarReturn
}

// sendBool never blocks the UI loop; a nil channel drops the value
func (m Model) sendBool(ch chan bool, v bool) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
	}
	if msg.EffectOn != nil {
		m.effectOn = *msg.EffectOn
	}
	if msg.EarReturn != nil {
		m.earReturn = *msg.EarReturn
	}
	if msg.RecordPath != "" {
		m.recordPath = msg.RecordPath
	}
	if msg.Counters != nil {
		m.queueDepth = msg.Counters.QueueDepth
		m.queueCapacity = msg.Counters.QueueCapacity
		m.dropped = msg.Counters.Dropped
		m.recorded = msg.Counters.Recorded
		m.listeners = msg.Counters.Listeners
	}
	if msg.Err != nil {
		m.lastErr = msg.Err.Error()
	}
}

// StatusMsg updates TUI state. Zero fields are left unchanged.
type StatusMsg struct {
	Backend    string
	SampleRate int
	Channels   int
	BitDepth   int
	EffectOn   *bool
	EarReturn  *bool
	RecordPath string
	Counters   *Counters
	Err        error
}

// Counters is the periodic stats snapshot
type Counters struct {
	QueueDepth    int
	QueueCapacity int
	Dropped       uint64
	Recorded      time.Duration
	Listeners     int
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
