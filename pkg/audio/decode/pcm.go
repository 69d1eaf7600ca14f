// ABOUTME: Raw PCM decoder
// ABOUTME: Reads headerless s16le audio from any seekable source
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
)

// PCMDecoder reads raw s16le PCM
type PCMDecoder struct {
	r          io.ReadSeeker
	sampleRate int
	channels   int
	buf        []byte
}

// NewPCM wraps r as a raw s16le stream
func NewPCM(r io.ReadSeeker, sampleRate, channels int) *PCMDecoder {
	return &PCMDecoder{r: r, sampleRate: sampleRate, channels: channels}
}

// Read converts s16le bytes to 24-bit range samples
func (d *PCMDecoder) Read(samples []int32) (int, error) {
	numBytes := len(samples) * 2
	if cap(d.buf) < numBytes {
		d.buf = make([]byte, numBytes)
	}
	buf := d.buf[:numBytes]

	n, err := io.ReadFull(d.r, buf)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err != nil && n == 0 {
		return 0, err
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	return numSamples, nil
}

// SampleRate returns the configured sample rate
func (d *PCMDecoder) SampleRate() int { return d.sampleRate }

// Channels returns the configured channel count
func (d *PCMDecoder) Channels() int { return d.channels }

// Rewind seeks back to the first byte
func (d *PCMDecoder) Rewind() error {
	if _, err := d.r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	return nil
}

// Close closes the source if it is closable
func (d *PCMDecoder) Close() error {
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
