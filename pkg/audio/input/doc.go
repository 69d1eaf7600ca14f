// ABOUTME: Audio input package for capturing audio
// ABOUTME: Provides the Input interface with malgo, PortAudio, tone and file sources
// Package input provides sources of fixed-size PCM frames for the sender.
//
// Read blocks until one whole frame is available, so a caller reading in a
// loop runs at the stream's frame rate. Device backends drop samples that
// overflow their buffers rather than blocking the audio callback.
//
// Example:
//
//	in, err := input.New("tone", "")
//	err = in.Open(audio.DefaultFormat())
//	frame, err := in.Read(ctx)
package input
