// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for playback backends plus a name-based factory
package output

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
)

var (
	// ErrNotOpen is returned by Write before Open succeeds or after Close
	ErrNotOpen = errors.New("output not initialized")

	// ErrUnsupportedFormat is returned when a backend cannot play the format
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output device for the stream format
	Open(format audio.Format) error

	// Write plays one frame of interleaved s16le PCM, blocking while the
	// device is saturated
	Write(frame []byte) error

	// Close releases output resources
	Close() error
}

// Backends lists the names accepted by New
var Backends = []string{"oto", "malgo", "portaudio", "null"}

// New creates an output by backend name
func New(backend string) (Output, error) {
	switch backend {
	case "", "oto":
		return NewOto(), nil
	case "malgo":
		return NewMalgo(), nil
	case "portaudio":
		return NewPortAudio(), nil
	case "null":
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q (supported: %v)", backend, Backends)
	}
}

func checkFormat(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}
	if format.SampleFormat != audio.FormatS16LE {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format.SampleFormat)
	}
	return nil
}
