// ABOUTME: Null audio output that discards frames in real time
// ABOUTME: Used for headless receivers and tests
package output

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
)

// Null discards audio but paces writes like a real device
type Null struct {
	mu       sync.Mutex
	open     bool
	duration time.Duration
	next     time.Time
	frames   int
}

// NewNull creates a discarding output
func NewNull() Output {
	return &Null{}
}

// Open records the frame duration used for pacing
func (n *Null) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.open = true
	n.duration = format.FrameDuration()
	n.next = time.Time{}
	return nil
}

// Write sleeps until the frame would have finished playing
func (n *Null) Write(frame []byte) error {
	n.mu.Lock()
	if !n.open {
		n.mu.Unlock()
		return ErrNotOpen
	}
	now := time.Now()
	if n.next.Before(now) {
		n.next = now
	}
	n.next = n.next.Add(n.duration)
	wait := n.next.Sub(now) - n.duration
	n.frames++
	n.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
	return nil
}

// Close stops accepting frames
func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.open = false
	return nil
}

// Frames returns the number of frames written
func (n *Null) Frames() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frames
}
