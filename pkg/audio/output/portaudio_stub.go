//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(format audio.Format) error {
	return errPortAudioDisabled
}

// Write always fails without the portaudio build tag
func (p *PortAudio) Write(frame []byte) error {
	return errPortAudioDisabled
}

// Close is a no-op
func (p *PortAudio) Close() error {
	return nil
}
