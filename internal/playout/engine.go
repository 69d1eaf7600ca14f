// ABOUTME: Playback loop draining the playout queue into the output device
// ABOUTME: Static startup buffer, FIFO drain, underrun counting and software volume
package playout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
)

// DefaultStartupBuffer is the fixed delay before playback begins
const DefaultStartupBuffer = 200 * time.Millisecond

// Sink is where the engine writes frames. Write blocks for about one frame.
type Sink interface {
	Write(frame []byte) error
}

// EngineConfig configures an Engine
type EngineConfig struct {
	// StartupBuffer is waited once before the first dequeue
	StartupBuffer time.Duration
	// UnderrunTimeout is how long a dequeue waits before counting an underrun
	UnderrunTimeout time.Duration
	// Volume is 0-100
	Volume int
	Muted  bool
}

// DefaultEngineConfig returns the reference buffering for format
func DefaultEngineConfig(format audio.Format) EngineConfig {
	return EngineConfig{
		StartupBuffer:   DefaultStartupBuffer,
		UnderrunTimeout: format.FrameDuration(),
		Volume:          100,
	}
}

// Engine plays queued frames in arrival order
type Engine struct {
	queue   *Queue
	sink    Sink
	cfg     EngineConfig
	opts    options
	volume  atomic.Int32
	muted   atomic.Bool
	playing atomic.Bool
}

// NewEngine creates a playback loop writing to sink
func NewEngine(queue *Queue, sink Sink, cfg EngineConfig, opts ...Option) *Engine {
	if cfg.UnderrunTimeout <= 0 {
		cfg.UnderrunTimeout = audio.DefaultFormat().FrameDuration()
	}
	e := &Engine{
		queue: queue,
		sink:  sink,
		cfg:   cfg,
		opts:  buildOptions(opts),
	}
	e.SetVolume(cfg.Volume)
	e.muted.Store(cfg.Muted)
	return e
}

// Run buffers, then drains the queue until ctx is cancelled. An output
// write failure ends playback with an error.
func (e *Engine) Run(ctx context.Context) error {
	log.Printf("Buffering %v before playback", e.cfg.StartupBuffer)

	if e.cfg.StartupBuffer > 0 {
		timer := time.NewTimer(e.cfg.StartupBuffer)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}

	e.playing.Store(true)
	defer e.playing.Store(false)
	log.Printf("Playback started with %d frames queued", e.queue.Len())

	stats := e.opts.stats
	metrics := e.opts.metrics
	starved := false

	for {
		frame, err := e.queue.Pop(ctx, e.cfg.UnderrunTimeout)
		if errors.Is(err, ErrEmpty) {
			// One underrun per starvation episode
			if !starved {
				starved = true
				stats.underruns.Add(1)
				if metrics != nil {
					metrics.Underruns.Add(ctx, 1)
				}
				log.Printf("Playout underrun: queue empty")
			}
			continue
		}
		if err != nil {
			return nil
		}
		if starved {
			starved = false
			log.Printf("Playout resumed")
		}

		frame = audio.ApplyVolume(frame, int(e.volume.Load()), e.muted.Load())
		if err := e.sink.Write(frame); err != nil {
			return fmt.Errorf("output write failed: %w", err)
		}

		stats.played.Add(1)
		if metrics != nil {
			metrics.FramesPlayed.Add(ctx, 1)
		}
	}
}

// SetVolume sets the volume (0-100)
func (e *Engine) SetVolume(volume int) {
	e.volume.Store(int32(min(max(volume, 0), 100)))
}

// Volume returns the current volume
func (e *Engine) Volume() int {
	return int(e.volume.Load())
}

// SetMuted sets mute state
func (e *Engine) SetMuted(muted bool) {
	e.muted.Store(muted)
}

// Muted returns mute state
func (e *Engine) Muted() bool {
	return e.muted.Load()
}

// Playing reports whether the startup buffer has elapsed and the loop is draining
func (e *Engine) Playing() bool {
	return e.playing.Load()
}

// Stats returns the engine's counters
func (e *Engine) Stats() *Stats {
	return e.opts.stats
}
