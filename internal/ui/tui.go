// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the channels it sends commands on
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Controls holds channels the TUI sends user commands on
type Controls struct {
	Effect    chan bool
	EarReturn chan bool
	Quit      chan struct{}
}

// NewControls creates a new control channel set
func NewControls() *Controls {
	return &Controls{
		Effect:    make(chan bool, 10),
		EarReturn: make(chan bool, 10),
		Quit:      make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		controls: controls,
	}
}

// Run creates the TUI program. The caller runs it and feeds StatusMsg via Send.
func Run(controls *Controls) *tea.Program {
	return tea.NewProgram(NewModel(controls), tea.WithAltScreen())
}
