// ABOUTME: File input that streams an audio file as if it were live capture
// ABOUTME: Decodes MP3/FLAC/PCM, converts to the stream format and paces frames in real time
package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio/resample"
)

// maxEmptyReads bounds consecutive decoder reads that yield no samples
const maxEmptyReads = 64

// ErrEmptyFile is returned when a whole pass over the file yields no samples
var ErrEmptyFile = errors.New("audio file is empty")

// File streams a decoded audio file at frame cadence, looping at the end
type File struct {
	// Loop restarts the file at EOF; otherwise Read returns io.EOF after the
	// last (silence-padded) frame
	Loop bool

	path      string
	dec       decode.Decoder
	format    audio.Format
	resampler *resample.Resampler
	pacer     *pacer
	readBuf   []int32
	pending   []int32 // converted samples waiting to fill a frame
	passRead  int     // samples decoded since the last rewind
	eof       bool
	closed    chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
}

// NewFile creates an input for the audio file at path
func NewFile(path string) *File {
	return &File{Loop: true, path: path, closed: make(chan struct{})}
}

// NewDecoderInput streams from an already opened decoder
func NewDecoderInput(dec decode.Decoder) *File {
	return &File{Loop: true, dec: dec, closed: make(chan struct{})}
}

// Open decodes the file header and prepares conversion to format
func (f *File) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dec == nil {
		dec, err := decode.Open(f.path)
		if err != nil {
			return err
		}
		f.dec = dec
	}

	f.format = format
	f.resampler = resample.New(f.dec.SampleRate(), format.SampleRate, format.Channels)
	f.pacer = newPacer(format.FrameDuration())
	f.readBuf = make([]int32, 4096*f.dec.Channels())

	if !f.resampler.Passthrough() {
		log.Printf("Resampling file input %dHz -> %dHz", f.dec.SampleRate(), format.SampleRate)
	}
	return nil
}

// Read returns the next frame once it is due
func (f *File) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-f.closed:
		return nil, ErrClosed
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dec == nil || f.resampler == nil {
		return nil, ErrNotOpen
	}

	want := f.format.FrameSamples()
	empty := 0
	for len(f.pending) < want && !f.eof {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := f.decodeMore()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			empty = 0
			continue
		}
		if empty++; empty >= maxEmptyReads {
			return nil, fmt.Errorf("decoder returned no samples in %d reads", empty)
		}
	}
	if len(f.pending) == 0 {
		return nil, io.EOF
	}

	if err := f.pacer.wait(ctx); err != nil {
		return nil, err
	}

	n := min(want, len(f.pending))
	frame := audio.EncodeS16LE(make([]byte, 0, f.format.FrameBytes()), f.pending[:n])
	// Pad the final frame with silence
	frame = append(frame, make([]byte, f.format.FrameBytes()-len(frame))...)
	f.pending = f.pending[:copy(f.pending, f.pending[n:])]
	return frame, nil
}

// decodeMore pulls one block from the decoder, appends converted samples
// and returns how many decoded samples it consumed
func (f *File) decodeMore() (int, error) {
	n, err := f.dec.Read(f.readBuf)
	if errors.Is(err, io.EOF) {
		if f.passRead == 0 {
			return 0, ErrEmptyFile
		}
		if !f.Loop {
			f.eof = true
			return 0, nil
		}
		if err := f.dec.Rewind(); err != nil {
			return 0, err
		}
		f.passRead = 0
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("decode failed: %w", err)
	}

	f.passRead += n
	samples := remix(f.readBuf[:n], f.dec.Channels(), f.format.Channels)
	f.pending = f.resampler.Process(f.pending, samples)
	return n, nil
}

// remix converts interleaved samples between channel counts
func remix(samples []int32, from, to int) []int32 {
	if from == to {
		return samples
	}
	mono := audio.Downmix(samples, from)
	if to == 1 {
		return mono
	}
	out := make([]int32, len(mono)*to)
	for i, s := range mono {
		for ch := 0; ch < to; ch++ {
			out[i*to+ch] = s
		}
	}
	return out
}

// Close releases the decoder
func (f *File) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.closed)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.dec != nil {
			err = f.dec.Close()
		}
	})
	return err
}
