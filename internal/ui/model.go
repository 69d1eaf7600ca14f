// ABOUTME: Bubbletea model for the receiver TUI
// ABOUTME: Shows stream format, playout counters and volume controls
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/playout"
	tea "github.com/charmbracelet/bubbletea"
)

const volumeStep = 5

// unmuteVolume is the level restored when unmuting at zero volume
const unmuteVolume = 50

// Model represents the receiver TUI state
type Model struct {
	// Stream
	listenAddr string
	format     string

	// Discovered sender, informational only
	senderName string
	senderHost string
	mismatch   string

	// Playback
	playing bool
	volume  int
	muted   bool

	// Stats
	stats playout.Snapshot

	showDebug  bool
	volumeCtrl *VolumeControl

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
	case SenderMsg:
		m.senderName = msg.Name
		m.senderHost = msg.Host
		m.mismatch = msg.Mismatch
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderControls())
	b.WriteString(m.renderStats())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	state := "Buffering"
	switch {
	case m.playing && m.stats.QueueDepth == 0 && m.stats.Played > 0:
		state = "Underrun"
	case m.playing:
		state = "Playing"
	}

	s := fmt.Sprintf(`┌─ Airwave Receiver ───────────────────────────────────┐
│ Status: %-44s │
│ Listen: %-44s │
│ Format: %-44s │
`, state, truncate(m.listenAddr, 44), truncate(m.format, 44))

	if m.senderName != "" {
		s += fmt.Sprintf("│ Sender: %-44s │\n", truncate(m.senderName+" ("+m.senderHost+")", 44))
	}
	if m.mismatch != "" {
		s += fmt.Sprintf("│ ⚠ %-50s │\n", truncate(m.mismatch, 50))
	}
	s += "├──────────────────────────────────────────────────────┤\n"
	return s
}

func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}
	volume := fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon)
	queue := fmt.Sprintf("%d frames", m.stats.QueueDepth)

	return fmt.Sprintf("│ Volume: %-44s │\n│ Queue:  %-44s │\n", volume, queue)
}

func (m Model) renderStats() string {
	rx := fmt.Sprintf("RX: %d  Played: %d  Underruns: %d", m.stats.Received, m.stats.Played, m.stats.Underruns)
	bad := fmt.Sprintf("Malformed: %d  Wrong size: %d  Dropped: %d", m.stats.Malformed, m.stats.WrongSize, m.stats.Dropped)
	timing := fmt.Sprintf("Latency: %s  Jitter: %s  Reordered: %d",
		formatMillis(m.stats.LastLatency), formatMillis(m.stats.Jitter), m.stats.Reordered)

	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ %-52s │
│ %-52s │
│ %-52s │
`, rx, bad, timing)
}

func (m Model) renderDebug() string {
	last := "never"
	if !m.stats.LastPacket.IsZero() {
		last = m.stats.LastPacket.Format("15:04:05.000")
	}
	return fmt.Sprintf("│ DEBUG: last packet %-33s │\n", last)
}

func (m Model) renderHelp() string {
	return `│ ↑/↓:Volume  m:Mute  d:Debug  q:Quit                  │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up", "+":
		m.volume = min(m.volume+volumeStep, 100)
		m.sendVolume()
	case "down", "-":
		m.volume = max(m.volume-volumeStep, 0)
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		if !m.muted && m.volume == 0 {
			m.volume = unmuteVolume
		}
		m.sendVolume()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// sendVolume never blocks the UI; a full channel drops the change
func (m Model) sendVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

func (m *Model) applyStatus(msg StatusMsg) {
	if msg.ListenAddr != "" {
		m.listenAddr = msg.ListenAddr
	}
	if msg.Format != "" {
		m.format = msg.Format
	}
	if msg.Stats != nil {
		m.stats = *msg.Stats
		m.playing = msg.Playing
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Muted != nil {
		m.muted = *msg.Muted
	}
}

// StatusMsg updates receiver TUI state; nil and empty fields are ignored
type StatusMsg struct {
	ListenAddr string
	Format     string
	Stats      *playout.Snapshot
	Playing    bool
	Volume     *int
	Muted      *bool
}

// SenderMsg reports a sender found by discovery
type SenderMsg struct {
	Name     string
	Host     string
	Mismatch string
}

func renderBar(value, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := min(max(value*width/total, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}
