// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output interface and oto, malgo, PortAudio and null backends
// Package output provides audio playback backends.
//
// Every backend accepts whole s16le frames and blocks in Write while the
// device is saturated, so a caller writing in a loop is paced at the
// stream's sample rate. PortAudio requires the portaudio build tag.
//
// Example:
//
//	out, err := output.New("oto")
//	err = out.Open(audio.DefaultFormat())
//	err = out.Write(frame)
package output
