// ABOUTME: Audio resampling package
// ABOUTME: Converts file sources to the stream's fixed sample rate
// Package resample provides a streaming linear resampler.
//
// It is used by file inputs whose native rate differs from the stream
// format. Quality is adequate for monitoring and test material.
//
// Example:
//
//	r := resample.New(48000, 44100, 1)
//	out = r.Process(out[:0], samples)
package resample
