// ABOUTME: Audio type definitions
// ABOUTME: Defines the fixed PCM frame format shared by sender and receiver
package audio

import (
	"errors"
	"fmt"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// Reference stream parameters
	DefaultSampleRate = 44100
	DefaultChannels   = 1
	DefaultFrameSize  = 1024 // samples per channel per frame
)

// SampleFormat names the on-wire sample encoding
type SampleFormat string

const (
	// FormatS16LE is 16-bit signed little-endian PCM
	FormatS16LE SampleFormat = "s16le"
)

// BytesPerSample returns the encoded width of one sample, or 0 if unknown
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatS16LE:
		return 2
	default:
		return 0
	}
}

// Format describes the fixed PCM frame layout. Both ends must agree on it
// out of band; nothing on the wire describes it.
type Format struct {
	SampleFormat SampleFormat `yaml:"sample_format"`
	Channels     int          `yaml:"channels"`
	SampleRate   int          `yaml:"sample_rate"`
	FrameSize    int          `yaml:"frame_size"`
}

// DefaultFormat returns s16le mono 44100Hz with 1024-sample frames
func DefaultFormat() Format {
	return Format{
		SampleFormat: FormatS16LE,
		Channels:     DefaultChannels,
		SampleRate:   DefaultSampleRate,
		FrameSize:    DefaultFrameSize,
	}
}

// FrameBytes returns the length of one encoded frame
func (f Format) FrameBytes() int {
	return f.FrameSize * f.Channels * f.SampleFormat.BytesPerSample()
}

// FrameSamples returns the number of interleaved samples in one frame
func (f Format) FrameSamples() int {
	return f.FrameSize * f.Channels
}

// FrameDuration returns the playback time of one frame
func (f Format) FrameDuration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.FrameSize) * time.Second / time.Duration(f.SampleRate)
}

// Validate reports every invalid field
func (f Format) Validate() error {
	var errs []error
	if f.SampleFormat.BytesPerSample() == 0 {
		errs = append(errs, fmt.Errorf("unsupported sample format: %q (supported: %s)", f.SampleFormat, FormatS16LE))
	}
	if f.Channels < 1 || f.Channels > 2 {
		errs = append(errs, fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", f.Channels))
	}
	if f.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("invalid sample rate: %d", f.SampleRate))
	}
	if f.FrameSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid frame size: %d", f.FrameSize))
	}
	return errors.Join(errs...)
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch %d-sample frames", f.SampleFormat, f.SampleRate, f.Channels, f.FrameSize)
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}
