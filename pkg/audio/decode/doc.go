// ABOUTME: Audio file decoder package
// ABOUTME: Provides the Decoder interface with MP3, FLAC and raw PCM implementations
// Package decode reads audio files into PCM samples.
//
// All decoders output interleaved int32 samples in 24-bit range at the
// file's native rate and channel count. Callers convert to the stream
// format themselves (see package resample and audio.Downmix).
//
// Example:
//
//	dec, err := decode.Open("music.flac")
//	n, err := dec.Read(samples)
package decode
