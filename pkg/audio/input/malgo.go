// ABOUTME: Malgo-based capture implementation
// ABOUTME: Collects miniaudio capture callbacks into a ring buffer and hands out whole frames
package input

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/gen2brain/malgo"
)

// malgoBufferFrames is how many frames the capture ring holds before dropping
const malgoBufferFrames = 8

// Malgo captures from the default input device via miniaudio
type Malgo struct {
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	format     audio.Format
	ringBuffer *audio.RingBuffer
	ready      chan struct{} // signaled by the callback after writing
	closed     chan struct{}
	closeOnce  sync.Once
	overflow   atomic.Uint64
	mu         sync.Mutex
}

// NewMalgo creates a new Malgo capture input
func NewMalgo() *Malgo {
	return &Malgo{
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Open initializes and starts the capture device
func (m *Malgo) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("capture device already open")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx

	m.format = format
	m.ringBuffer = audio.NewRingBuffer(format.FrameBytes() * malgoBufferFrames)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(format.FrameSize)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pInputSamples)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		m.releaseContext()
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		m.releaseContext()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	m.device = device
	log.Printf("Audio input initialized: %s (malgo)", format)
	return nil
}

// dataCallback stores captured bytes; whatever does not fit is dropped
func (m *Malgo) dataCallback(pInput []byte) {
	n := m.ringBuffer.Write(pInput)
	if dropped := len(pInput) - n; dropped > 0 {
		m.overflow.Add(uint64(dropped))
	}

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Read waits for one whole frame of captured audio
func (m *Malgo) Read(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	rb := m.ringBuffer
	frameBytes := m.format.FrameBytes()
	m.mu.Unlock()

	if rb == nil {
		return nil, ErrNotOpen
	}

	for rb.Available() < frameBytes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.closed:
			return nil, ErrClosed
		case <-m.ready:
		}
	}

	frame := make([]byte, frameBytes)
	rb.Read(frame)
	return frame, nil
}

// OverflowBytes returns how many captured bytes were dropped for lack of space
func (m *Malgo) OverflowBytes() uint64 {
	return m.overflow.Load()
}

// Close stops the device and releases the context
func (m *Malgo) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: capture device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	m.releaseContext()
	return nil
}

// releaseContext frees the malgo context (must hold m.mu)
func (m *Malgo) releaseContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}
