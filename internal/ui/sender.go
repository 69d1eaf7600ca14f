// ABOUTME: Sender TUI showing destination, input and send counters
// ABOUTME: Real-time sender status display using bubbletea and lipgloss
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/capture"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SenderStatus holds sender state for the TUI
type SenderStatus struct {
	Name        string
	StreamID    string
	Destination string
	LocalIP     string
	Format      string
	Input       string
	Stats       capture.Stats
}

// SenderTUI manages the sender TUI
type SenderTUI struct {
	program  *tea.Program
	updates  chan SenderStatus
	quitChan chan struct{}
}

type tickMsg time.Time
type senderStatusMsg SenderStatus

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

type senderModel struct {
	status    SenderStatus
	startTime time.Time
	now       time.Time
	quitting  bool
	quitChan  chan struct{}
}

func (m senderModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m senderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickEvery()

	case senderStatusMsg:
		m.status = SenderStatus(msg)
	}

	return m, nil
}

func (m senderModel) View() string {
	if m.quitting {
		return "Stopping sender...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Airwave Sender"))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(headerStyle.Render(label + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	row("Name", m.status.Name)
	row("Stream", m.status.StreamID)
	row("Input", m.status.Input)
	row("Format", m.status.Format)
	row("Local IP", m.status.LocalIP)
	row("Destination", m.status.Destination)

	now := m.now
	if now.IsZero() {
		now = m.startTime
	}
	row("Uptime", now.Sub(m.startTime).Round(time.Second).String())
	b.WriteString("\n")

	stats := m.status.Stats
	row("Frames sent", fmt.Sprintf("%d", stats.FramesSent))
	row("Bytes sent", formatBytes(stats.BytesSent))
	if stats.SendErrors > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Send errors: %d", stats.SendErrors)))
		b.WriteString("\n")
	}
	if stats.InputOverflow > 0 {
		b.WriteString(errorStyle.Render("Input overflow: " + formatBytes(stats.InputOverflow) + " dropped"))
		b.WriteString("\n")
	}
	last := "never"
	if !stats.LastSend.IsZero() {
		last = stats.LastSend.Format("15:04:05.000")
	}
	row("Last send", last)

	b.WriteString("\n")
	b.WriteString(faintStyle.Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

// NewSenderTUI creates a sender TUI
func NewSenderTUI() *SenderTUI {
	return &SenderTUI{
		updates:  make(chan SenderStatus, 10),
		quitChan: make(chan struct{}, 1),
	}
}

// Start runs the TUI until it quits
func (t *SenderTUI) Start(initial SenderStatus) error {
	m := senderModel{
		status:    initial,
		startTime: time.Now(),
		quitChan:  t.quitChan,
	}

	t.program = tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		for status := range t.updates {
			t.program.Send(senderStatusMsg(status))
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update sends a status update without blocking
func (t *SenderTUI) Update(status SenderStatus) {
	select {
	case t.updates <- status:
	default:
	}
}

// Stop quits the TUI
func (t *SenderTUI) Stop() {
	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan is signalled when the user quits from the TUI
func (t *SenderTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
