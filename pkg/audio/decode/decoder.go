// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for file decoders plus extension-based selection
package decode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
)

// Decoder produces interleaved PCM samples in 24-bit range from an audio file
type Decoder interface {
	// Read fills samples and returns how many were written. It returns
	// io.EOF once the stream is exhausted and no samples were read.
	Read(samples []int32) (int, error)

	// SampleRate returns the native sample rate
	SampleRate() int

	// Channels returns the native channel count
	Channels() int

	// Rewind restarts decoding from the beginning of the stream
	Rewind() error

	// Close releases decoder resources
	Close() error
}

// Extensions lists the file types Open understands
var Extensions = []string{".mp3", ".flac", ".pcm", ".raw"}

// Open picks a decoder by file extension. Raw PCM files (.pcm, .raw) are
// read as s16le in the default stream format.
func Open(path string) (Decoder, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		return NewMP3(path)
	case ".flac":
		return NewFLAC(path)
	case ".pcm", ".raw":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open PCM file: %w", err)
		}
		return NewPCM(f, audio.DefaultSampleRate, audio.DefaultChannels), nil
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: %s)", ext, strings.Join(Extensions, ", "))
	}
}
