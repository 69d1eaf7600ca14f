// ABOUTME: FLAC file decoder
// ABOUTME: Decodes FLAC audio to int32 samples using mewkiz/flac
package decode

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio frame by frame
type FLACDecoder struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	pending    []int32 // decoded samples not yet returned
}

// NewFLAC opens a FLAC file
func NewFLAC(path string) (*FLACDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	d := &FLACDecoder{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
	}

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		filepath.Base(path), d.sampleRate, d.channels, d.bitDepth)

	return d, nil
}

// Read fills samples with interleaved 24-bit range PCM
func (d *FLACDecoder) Read(samples []int32) (int, error) {
	read := 0
	for read < len(samples) {
		if len(d.pending) > 0 {
			n := copy(samples[read:], d.pending)
			d.pending = d.pending[n:]
			read += n
			continue
		}

		frame, err := d.stream.ParseNext()
		if errors.Is(err, io.EOF) {
			if read == 0 {
				return 0, io.EOF
			}
			return read, nil
		}
		if err != nil {
			return read, fmt.Errorf("flac frame: %w", err)
		}

		blockSize := int(frame.BlockSize)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < d.channels; ch++ {
				d.pending = append(d.pending, scaleTo24(frame.Subframes[ch].Samples[i], d.bitDepth))
			}
		}
	}
	return read, nil
}

// scaleTo24 shifts a sample of the given bit depth into 24-bit range
func scaleTo24(sample int32, bitDepth int) int32 {
	shift := bitDepth - 24
	if shift > 0 {
		return sample >> shift
	}
	return sample << -shift
}

// SampleRate returns the native sample rate
func (d *FLACDecoder) SampleRate() int { return d.sampleRate }

// Channels returns the native channel count
func (d *FLACDecoder) Channels() int { return d.channels }

// Rewind reopens the stream from the start of the file
func (d *FLACDecoder) Rewind() error {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(d.file)
	if err != nil {
		return fmt.Errorf("failed to create new stream: %w", err)
	}
	d.stream = stream
	d.pending = d.pending[:0]
	return nil
}

// Close releases the underlying file
func (d *FLACDecoder) Close() error {
	return d.file.Close()
}
