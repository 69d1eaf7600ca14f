// ABOUTME: Tests for audio inputs
// ABOUTME: Covers the tone generator, file streaming, channel remixing and pacing
package input

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio/decode"
	"github.com/google/go-cmp/cmp"
)

// smallFormat is 10ms mono frames so paced tests stay fast
var smallFormat = audio.Format{
	SampleFormat: audio.FormatS16LE,
	Channels:     1,
	SampleRate:   44100,
	FrameSize:    441,
}

func TestKindsImplementInput(t *testing.T) {
	var _ Input = (*Malgo)(nil)
	var _ Input = (*PortAudio)(nil)
	var _ Input = (*Tone)(nil)
	var _ Input = (*File)(nil)
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    string
		path    string
		wantErr bool
	}{
		{"", "", false},
		{"malgo", "", false},
		{"portaudio", "", false},
		{"tone", "", false},
		{"file", "song.mp3", false},
		{"file", "", true},
		{"jack", "", true},
	}

	for _, tt := range tests {
		in, err := New(tt.kind, tt.path)
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%q, %q): expected error", tt.kind, tt.path)
			}
			continue
		}
		if err != nil || in == nil {
			t.Errorf("New(%q, %q): unexpected error %v", tt.kind, tt.path, err)
		}
	}
}

func TestToneFrames(t *testing.T) {
	tone := NewTone(440)
	if err := tone.Open(smallFormat); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer tone.Close()

	ctx := context.Background()
	start := time.Now()
	var frames [][]byte
	for i := 0; i < 4; i++ {
		frame, err := tone.Read(ctx)
		if err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		if len(frame) != smallFormat.FrameBytes() {
			t.Fatalf("expected %d-byte frame, got %d", smallFormat.FrameBytes(), len(frame))
		}
		frames = append(frames, frame)
	}

	// First frame is immediate, then one per 10ms
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("expected paced reads (~30ms), took %v", elapsed)
	}

	if bytes.Equal(frames[0], make([]byte, len(frames[0]))) {
		t.Error("expected non-silent tone")
	}

	// Phase continues across frames: 440Hz over 441 samples is 4.4 cycles
	if bytes.Equal(frames[0], frames[1]) {
		t.Error("expected consecutive frames to differ")
	}
}

func TestToneReadAfterClose(t *testing.T) {
	tone := NewTone(440)
	if err := tone.Open(smallFormat); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	tone.Close()

	if _, err := tone.Read(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestToneReadBeforeOpen(t *testing.T) {
	if _, err := NewTone(440).Read(context.Background()); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
}

func TestToneReadCancelled(t *testing.T) {
	tone := NewTone(440)
	if err := tone.Open(smallFormat); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer tone.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tone.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// pcmBytes encodes 16-bit values as s16le
func pcmBytes(values ...int16) []byte {
	var out []byte
	for _, v := range values {
		out = binary.LittleEndian.AppendUint16(out, uint16(v))
	}
	return out
}

func TestFileStreamsFramesAndPadsTail(t *testing.T) {
	format := audio.Format{SampleFormat: audio.FormatS16LE, Channels: 1, SampleRate: 44100, FrameSize: 4}
	dec := decode.NewPCM(bytes.NewReader(pcmBytes(1, 2, 3, 4, 5, 6)), 44100, 1)

	in := NewDecoderInput(dec)
	in.Loop = false
	if err := in.Open(format); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer in.Close()

	ctx := context.Background()
	first, err := in.Read(ctx)
	if err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if diff := cmp.Diff(pcmBytes(1, 2, 3, 4), first); diff != "" {
		t.Errorf("first frame mismatch (-want +got):\n%s", diff)
	}

	second, err := in.Read(ctx)
	if err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if diff := cmp.Diff(pcmBytes(5, 6, 0, 0), second); diff != "" {
		t.Errorf("tail frame should be silence padded (-want +got):\n%s", diff)
	}

	if _, err := in.Read(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestFileLoops(t *testing.T) {
	format := audio.Format{SampleFormat: audio.FormatS16LE, Channels: 1, SampleRate: 44100, FrameSize: 4}
	dec := decode.NewPCM(bytes.NewReader(pcmBytes(1, 2, 3)), 44100, 1)

	in := NewDecoderInput(dec)
	if err := in.Open(format); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer in.Close()

	frame, err := in.Read(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if diff := cmp.Diff(pcmBytes(1, 2, 3, 1), frame); diff != "" {
		t.Errorf("expected wrap to start of file (-want +got):\n%s", diff)
	}
}

func TestFileDownmixesStereo(t *testing.T) {
	format := audio.Format{SampleFormat: audio.FormatS16LE, Channels: 1, SampleRate: 44100, FrameSize: 2}
	dec := decode.NewPCM(bytes.NewReader(pcmBytes(100, 300, -50, -150)), 44100, 2)

	in := NewDecoderInput(dec)
	in.Loop = false
	if err := in.Open(format); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer in.Close()

	frame, err := in.Read(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if diff := cmp.Diff(pcmBytes(200, -100), frame); diff != "" {
		t.Errorf("downmix mismatch (-want +got):\n%s", diff)
	}
}

func TestFileEmptyWithLoop(t *testing.T) {
	in := NewDecoderInput(decode.NewPCM(bytes.NewReader(nil), 44100, 1))
	if err := in.Open(smallFormat); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer in.Close()

	if _, err := in.Read(context.Background()); err == nil {
		t.Error("expected error for empty looping file")
	}
}

func TestFileOddSingleByteIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.pcm")
	if err := os.WriteFile(path, []byte{0x01}, 0o644); err != nil {
		t.Fatal(err)
	}

	in := NewFile(path)
	if err := in.Open(audio.DefaultFormat()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer in.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := in.Read(context.Background())
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("expected ErrEmptyFile, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read did not return for a file with no whole samples")
	}
}

// silentDecoder never produces samples and never reports EOF
type silentDecoder struct{ reads int }

func (d *silentDecoder) Read([]int32) (int, error) {
	d.reads++
	return 0, nil
}

func (d *silentDecoder) SampleRate() int { return 44100 }
func (d *silentDecoder) Channels() int   { return 1 }
func (d *silentDecoder) Rewind() error   { return nil }
func (d *silentDecoder) Close() error    { return nil }

func TestFileGivesUpOnSilentDecoder(t *testing.T) {
	dec := &silentDecoder{}
	in := NewDecoderInput(dec)
	if err := in.Open(smallFormat); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer in.Close()

	if _, err := in.Read(context.Background()); err == nil {
		t.Fatal("expected an error from a decoder that yields nothing")
	}
	if dec.reads != maxEmptyReads {
		t.Errorf("expected %d decoder reads, got %d", maxEmptyReads, dec.reads)
	}
}

func TestFileReadChecksContext(t *testing.T) {
	dec := &silentDecoder{}
	in := NewDecoderInput(dec)
	if err := in.Open(smallFormat); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer in.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := in.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if dec.reads != 0 {
		t.Errorf("expected no decoder reads after cancel, got %d", dec.reads)
	}
}

func TestRemix(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int32
		from, to int
		want     []int32
	}{
		{"same", []int32{1, 2}, 1, 1, []int32{1, 2}},
		{"stereo to mono", []int32{10, 20, 30, 50}, 2, 1, []int32{15, 40}},
		{"mono to stereo", []int32{7, 9}, 1, 2, []int32{7, 7, 9, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := remix(tt.samples, tt.from, tt.to)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("remix mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPacerResyncsWhenBehind(t *testing.T) {
	now := time.Unix(1000, 0)
	p := newPacer(10 * time.Millisecond)
	p.now = func() time.Time { return now }

	ctx := context.Background()
	if err := p.wait(ctx); err != nil {
		t.Fatal(err)
	}

	// Stall for a second; the next frame must not be scheduled in the past
	now = now.Add(time.Second)
	if err := p.wait(ctx); err != nil {
		t.Fatal(err)
	}
	if want := now.Add(10 * time.Millisecond); !p.next.Equal(want) {
		t.Errorf("expected next frame at %v, got %v", want, p.next)
	}
}
