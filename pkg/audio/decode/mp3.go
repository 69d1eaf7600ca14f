// ABOUTME: MP3 file decoder
// ABOUTME: Decodes MP3 audio to int32 samples using go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 audio
type MP3Decoder struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
}

// NewMP3 opens an MP3 file
func NewMP3(path string) (*MP3Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", filepath.Base(path), decoder.SampleRate())

	return &MP3Decoder{file: f, decoder: decoder}, nil
}

// Read decodes s16le stereo from go-mp3 into 24-bit range samples
func (d *MP3Decoder) Read(samples []int32) (int, error) {
	numBytes := len(samples) * 2
	if cap(d.buf) < numBytes {
		d.buf = make([]byte, numBytes)
	}
	buf := d.buf[:numBytes]

	n, err := io.ReadFull(d.decoder, buf)
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

// SampleRate returns the decoded sample rate
func (d *MP3Decoder) SampleRate() int { return d.decoder.SampleRate() }

// Channels is always 2; go-mp3 outputs stereo
func (d *MP3Decoder) Channels() int { return 2 }

// Rewind seeks back to the first sample
func (d *MP3Decoder) Rewind() error {
	if _, err := d.decoder.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	return nil
}

// Close releases the underlying file
func (d *MP3Decoder) Close() error {
	return d.file.Close()
}
