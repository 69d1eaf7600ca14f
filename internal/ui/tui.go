// ABOUTME: Receiver TUI initialization and control channels
// ABOUTME: Wraps the bubbletea program and forwards key-driven volume changes
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// VolumeChangeMsg carries a volume or mute change made in the TUI
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// QuitMsg signals the user asked to quit
type QuitMsg struct{}

// VolumeControl holds channels from the TUI to the receiver
type VolumeControl struct {
	Changes chan VolumeChangeMsg
	Quit    chan QuitMsg
}

// NewVolumeControl creates a new volume control handler
func NewVolumeControl() *VolumeControl {
	return &VolumeControl{
		Changes: make(chan VolumeChangeMsg, 10),
		Quit:    make(chan QuitMsg, 1),
	}
}

// NewModel creates a receiver model with the given initial volume
func NewModel(volCtrl *VolumeControl, volume int) Model {
	return Model{
		volume:     volume,
		volumeCtrl: volCtrl,
	}
}

// Run creates the receiver TUI program; the caller runs it
func Run(volCtrl *VolumeControl, volume int) *tea.Program {
	return tea.NewProgram(NewModel(volCtrl, volume), tea.WithAltScreen())
}
