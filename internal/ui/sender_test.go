// ABOUTME: Tests for the sender TUI model
// ABOUTME: Covers status updates, quit signalling and byte formatting
package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/capture"
	tea "github.com/charmbracelet/bubbletea"
)

func TestSenderModelView(t *testing.T) {
	start := time.Unix(1700000000, 0)
	m := senderModel{startTime: start, quitChan: make(chan struct{}, 1)}

	next, _ := m.Update(senderStatusMsg{
		Name:        "studio",
		Destination: "255.255.255.255:5005",
		Input:       "tone",
		Stats:       capture.Stats{FramesSent: 431, BytesSent: 3 * 1024 * 1024, SendErrors: 2, InputOverflow: 4096},
	})
	next, _ = next.Update(tickMsg(start.Add(65 * time.Second)))

	view := next.View()
	for _, want := range []string{"Airwave Sender", "studio", "255.255.255.255:5005", "431", "3.0 MiB", "Send errors: 2", "Input overflow: 4.0 KiB dropped", "1m5s"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSenderModelQuit(t *testing.T) {
	quit := make(chan struct{}, 1)
	m := senderModel{quitChan: quit}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	select {
	case <-quit:
	default:
		t.Error("expected quit signal")
	}
	if got := next.View(); !strings.Contains(got, "Stopping") {
		t.Errorf("unexpected view after quit: %q", got)
	}
}

func TestSenderTUIUpdateDoesNotBlock(t *testing.T) {
	tui := NewSenderTUI()
	for i := 0; i < 20; i++ {
		tui.Update(SenderStatus{Name: "x"})
	}
	if len(tui.updates) != cap(tui.updates) {
		t.Errorf("expected buffered updates to fill, got %d", len(tui.updates))
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
