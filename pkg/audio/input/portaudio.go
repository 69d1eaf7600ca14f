//go:build portaudio

// ABOUTME: PortAudio capture implementation
// ABOUTME: Reads fixed-size frames from a blocking PortAudio input stream
package input

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/gordonklaus/portaudio"
)

// PortAudio captures from the default input device
type PortAudio struct {
	stream *portaudio.Stream
	buffer []int16
	format audio.Format
	mu     sync.Mutex
}

// NewPortAudio creates a new PortAudio capture input
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

// Open initializes PortAudio with a blocking stream of one frame per read
func (p *PortAudio) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.buffer = make([]int16, format.FrameSamples())
	stream, err := portaudio.OpenDefaultStream(format.Channels, 0, float64(format.SampleRate), format.FrameSize, &p.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	p.format = format
	log.Printf("Audio input initialized: %s (portaudio)", format)
	return nil
}

// Read blocks for one frame. Overflowed samples are already lost by the
// time PortAudio reports it, so that condition is not an error.
func (p *PortAudio) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return nil, ErrClosed
	}

	if err := p.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, fmt.Errorf("portaudio read failed: %w", err)
	}

	frame := make([]byte, len(p.buffer)*2)
	for i, s := range p.buffer {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(s))
	}
	return frame, nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		log.Printf("Warning: portaudio stop error: %v", err)
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	p.stream = nil
	return portaudio.Terminate()
}
