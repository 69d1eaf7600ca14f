//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform blocking playback using PortAudio
package output

import (
	"encoding/binary"
	"fmt"
	"log"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	stream *portaudio.Stream
	buffer []int16
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Open initializes PortAudio with a blocking stream of one frame per write
func (p *PortAudio) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.buffer = make([]int16, format.FrameSamples())
	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), format.FrameSize, &p.buffer)
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
	log.Printf("Audio output initialized: %s (portaudio)", format)
	return nil
}

// Write blocks until PortAudio accepts the frame
func (p *PortAudio) Write(frame []byte) error {
	if p.stream == nil {
		return ErrNotOpen
	}
	if len(frame) != len(p.buffer)*2 {
		return fmt.Errorf("frame is %d bytes, stream expects %d", len(frame), len(p.buffer)*2)
	}

	for i := range p.buffer {
		p.buffer[i] = int16(binary.LittleEndian.Uint16(frame[i*2:]))
	}

	if err := p.stream.Write(); err != nil {
		if err == portaudio.OutputUnderflowed {
			return nil
		}
		return fmt.Errorf("portaudio write failed: %w", err)
	}
	return nil
}

// Close releases resources
func (p *PortAudio) Close() error {
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
