// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Feeds the miniaudio playback callback from a byte ring buffer
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/gen2brain/malgo"
)

// malgoBufferFrames is the ring depth in frames (about 100ms at 1024/44100)
const malgoBufferFrames = 4

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.Format
	ready    bool

	// Ring buffer for callback-based playback
	ringBuffer *audio.RingBuffer
	space      chan struct{} // signaled by the callback after draining
	done       chan struct{}
	mu         sync.Mutex
}

// NewMalgo creates a new Malgo output
func NewMalgo() Output {
	return &Malgo{}
}

// Open initializes the output device with specified format
func (m *Malgo) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// If already initialized with same format, reuse
	if m.device != nil && m.format == format {
		log.Printf("Audio output already initialized with same format, reusing device")
		return nil
	}

	if m.device != nil {
		log.Printf("Format change detected (%s -> %s), reinitializing device", m.format, format)
		m.closeDevice()
	}

	// Create malgo context if needed
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	m.ringBuffer = audio.NewRingBuffer(format.FrameBytes() * malgoBufferFrames)
	m.space = make(chan struct{}, 1)
	m.done = make(chan struct{})

	// Configure device
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(format.FrameSize)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.format = format
	m.ready = true

	log.Printf("Audio output initialized: %s (malgo)", format)
	return nil
}

// Write copies a frame into the ring, waiting for the callback to free space
func (m *Malgo) Write(frame []byte) error {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return ErrNotOpen
	}
	rb, space, done := m.ringBuffer, m.space, m.done
	m.mu.Unlock()

	for written := 0; written < len(frame); {
		n := rb.Write(frame[written:])
		written += n
		if n > 0 {
			continue
		}

		select {
		case <-space:
		case <-done:
			return ErrNotOpen
		}
	}
	return nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte) {
	n := m.ringBuffer.Read(pOutput)

	// Silence on underrun
	clear(pOutput[n:])

	select {
	case m.space <- struct{}{}:
	default:
	}
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device == nil {
		return
	}
	if err := m.device.Stop(); err != nil {
		log.Printf("Warning: device stop error: %v", err)
	}
	m.device.Uninit()
	m.device = nil
	m.ready = false
	close(m.done)
}
