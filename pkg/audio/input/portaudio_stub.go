//go:build !portaudio

// ABOUTME: PortAudio capture stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package input

import (
	"context"
	"errors"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio capture input (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio capture input
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(format audio.Format) error {
	return errPortAudioDisabled
}

// Read always fails without the portaudio build tag
func (p *PortAudio) Read(ctx context.Context) ([]byte, error) {
	return nil, errPortAudioDisabled
}

// Close is a no-op
func (p *PortAudio) Close() error {
	return nil
}
