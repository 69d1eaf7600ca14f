// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the fixed Format and s16le frame helpers
// Package audio provides the PCM types shared by the airwave sender and receiver.
//
// The stream format is fixed and agreed out of band:
//   - Format: sample encoding, channel count, sample rate and frame size
//   - FrameBytes: the exact payload length carried by every packet
//
// It also provides helpers for working with s16le frames:
//   - 16-bit <-> 24-bit-aligned int32 conversion
//   - channel downmix
//   - software volume with clipping
//
// Example:
//
//	format := audio.DefaultFormat() // s16le, mono, 44100Hz, 1024-sample frames
//	frame := make([]byte, format.FrameBytes())
//	audio.ApplyVolume(frame, 80, false)
package audio
