// ABOUTME: Test tone input
// ABOUTME: Generates a sine wave at frame cadence for running without a capture device
package input

import (
	"context"
	"math"
	"sync"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
)

// Tone generates a sine test tone
type Tone struct {
	frequency   float64
	format      audio.Format
	pacer       *pacer
	sampleIndex uint64
	samples     []int32
	closed      chan struct{}
	closeOnce   sync.Once
	open        bool
	mu          sync.Mutex
}

// NewTone creates a test tone generator at frequency Hz
func NewTone(frequency float64) *Tone {
	return &Tone{
		frequency: frequency,
		closed:    make(chan struct{}),
	}
}

// Open sets the output format
func (s *Tone) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = format
	s.pacer = newPacer(format.FrameDuration())
	s.samples = make([]int32, format.FrameSamples())
	s.open = true
	return nil
}

// Read returns the next frame once it is due
func (s *Tone) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-s.closed:
		return nil, ErrClosed
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, ErrNotOpen
	}

	if err := s.pacer.wait(ctx); err != nil {
		return nil, err
	}

	s.fill(s.samples)
	return audio.EncodeS16LE(make([]byte, 0, s.format.FrameBytes()), s.samples), nil
}

// fill writes one frame of the tone at 50% amplitude to every channel
func (s *Tone) fill(samples []int32) {
	channels := s.format.Channels
	frames := len(samples) / channels

	for i := 0; i < frames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.format.SampleRate)
		value := int32(math.Sin(2*math.Pi*s.frequency*t) * audio.Max24Bit * 0.5)
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = value
		}
	}
	s.sampleIndex += uint64(frames)
}

// Close stops the generator
func (s *Tone) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
