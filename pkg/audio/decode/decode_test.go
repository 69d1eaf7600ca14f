// ABOUTME: Tests for file decoders
// ABOUTME: Covers raw PCM reads, rewind and extension-based selection
package decode

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/google/go-cmp/cmp"
)

func TestPCMRead(t *testing.T) {
	// 0x0100 = 256, 0x0302 = 770
	dec := NewPCM(bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03}), 44100, 1)

	samples := make([]int32, 4)
	n, err := dec.Read(samples)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	want := []int32{256 << 8, 770 << 8}
	if diff := cmp.Diff(want, samples[:n]); diff != "" {
		t.Errorf("unexpected samples (-want +got):\n%s", diff)
	}

	if _, err := dec.Read(samples); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestPCMRewind(t *testing.T) {
	dec := NewPCM(bytes.NewReader([]byte{0x10, 0x00}), 44100, 1)

	samples := make([]int32, 1)
	if _, err := dec.Read(samples); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if err := dec.Rewind(); err != nil {
		t.Fatalf("rewind failed: %v", err)
	}
	n, err := dec.Read(samples)
	if err != nil || n != 1 || samples[0] != 0x10<<8 {
		t.Errorf("expected sample after rewind, got n=%d sample=%d err=%v", n, samples[0], err)
	}
}

func TestPCMIgnoresTrailingByte(t *testing.T) {
	dec := NewPCM(bytes.NewReader([]byte{0x01, 0x00, 0x02}), 44100, 1)

	samples := make([]int32, 4)
	n, err := dec.Read(samples)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 whole sample, got %d", n)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	raw := filepath.Join(dir, "tone.pcm")
	if err := os.WriteFile(raw, make([]byte, 64), 0o644); err != nil {
		t.Fatal(err)
	}
	wav := filepath.Join(dir, "tone.wav")
	if err := os.WriteFile(wav, make([]byte, 64), 0o644); err != nil {
		t.Fatal(err)
	}
	badMP3 := filepath.Join(dir, "bad.mp3")
	if err := os.WriteFile(badMP3, []byte("not an mp3"), 0o644); err != nil {
		t.Fatal(err)
	}
	badFLAC := filepath.Join(dir, "bad.flac")
	if err := os.WriteFile(badFLAC, []byte("not a flac"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"raw pcm", raw, ""},
		{"unsupported extension", wav, "unsupported audio format"},
		{"missing file", filepath.Join(dir, "missing.mp3"), "not found"},
		{"corrupt mp3", badMP3, "failed to decode MP3"},
		{"corrupt flac", badFLAC, "failed to decode FLAC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := Open(tt.path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer dec.Close()

			if dec.SampleRate() != audio.DefaultSampleRate || dec.Channels() != audio.DefaultChannels {
				t.Errorf("expected default format, got %dHz %dch", dec.SampleRate(), dec.Channels())
			}
		})
	}
}

func TestScaleTo24(t *testing.T) {
	tests := []struct {
		sample   int32
		bitDepth int
		want     int32
	}{
		{1, 16, 256},
		{1000, 24, 1000},
		{1 << 8, 32, 1},
		{-1, 16, -256},
	}

	for _, tt := range tests {
		if got := scaleTo24(tt.sample, tt.bitDepth); got != tt.want {
			t.Errorf("scaleTo24(%d, %d) = %d, want %d", tt.sample, tt.bitDepth, got, tt.want)
		}
	}
}
