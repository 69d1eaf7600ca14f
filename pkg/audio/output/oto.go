// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams s16le frames into a persistent oto player through a pipe
package output

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// oto only allows one context per process
var (
	otoOnce   sync.Once
	otoShared *oto.Context
	otoFormat audio.Format
	otoErr    error
)

// Oto output implementation using oto library
type Oto struct {
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.Format
	mu         sync.Mutex
}

// NewOto creates a new Oto output
func NewOto() Output {
	return &Oto{}
}

// Open initializes the output device
func (o *Oto) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   format.FrameDuration() * 2,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-readyChan

		otoShared = ctx
		otoFormat = format
	})
	if otoErr != nil {
		return otoErr
	}

	if otoFormat.SampleRate != format.SampleRate || otoFormat.Channels != format.Channels {
		return fmt.Errorf("%w: oto context already running at %s", ErrUnsupportedFormat, otoFormat)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		log.Printf("Audio output already initialized, reusing player")
		return nil
	}

	if err := otoShared.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}

	// Create pipe for continuous streaming
	o.pipeReader, o.pipeWriter = io.Pipe()

	// Create persistent player that reads from the pipe
	o.player = otoShared.NewPlayer(o.pipeReader)
	o.player.Play()
	o.format = format

	log.Printf("Audio output initialized: %s (oto)", format)
	return nil
}

// Write queues one frame. The pipe blocks until the player has consumed it,
// which paces the caller at the device rate.
func (o *Oto) Write(frame []byte) error {
	o.mu.Lock()
	w := o.pipeWriter
	o.mu.Unlock()

	if w == nil {
		return ErrNotOpen
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if otoShared != nil {
		if err := otoShared.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		}
	}
	return nil
}
