// ABOUTME: Audio input interface definition
// ABOUTME: Common interface for capture backends plus a name-based factory
package input

import (
	"context"
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
)

var (
	// ErrClosed is returned by Read after Close
	ErrClosed = errors.New("input closed")

	// ErrNotOpen is returned by Read before Open succeeds
	ErrNotOpen = errors.New("input not initialized")
)

// Input represents a source of fixed-size PCM frames
type Input interface {
	// Open starts capture in the given format
	Open(format audio.Format) error

	// Read blocks until one whole s16le frame is available and returns it.
	// The returned slice is owned by the caller.
	Read(ctx context.Context) ([]byte, error)

	// Close stops capture and releases the device
	Close() error
}

// OverflowReporter is implemented by inputs that drop captured audio when
// the reader falls behind
type OverflowReporter interface {
	// OverflowBytes returns the total number of captured bytes dropped
	OverflowBytes() uint64
}

// Kinds lists the names accepted by New
var Kinds = []string{"malgo", "portaudio", "tone", "file"}

// New creates an input by kind. path is only used by "file".
func New(kind, path string) (Input, error) {
	switch kind {
	case "", "malgo":
		return NewMalgo(), nil
	case "portaudio":
		return NewPortAudio(), nil
	case "tone":
		return NewTone(440.0), nil
	case "file":
		if path == "" {
			return nil, errors.New("file input requires a path")
		}
		return NewFile(path), nil
	default:
		return nil, fmt.Errorf("unknown input %q (supported: %v)", kind, Kinds)
	}
}

func checkFormat(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}
	if format.SampleFormat != audio.FormatS16LE {
		return fmt.Errorf("unsupported input sample format: %s", format.SampleFormat)
	}
	return nil
}
