// ABOUTME: PCM frame helpers
// ABOUTME: Converts between 24-bit-aligned int32 samples and s16le bytes, applies volume
package audio

import "encoding/binary"

// EncodeS16LE appends samples (24-bit range in int32) to dst as s16le bytes
func EncodeS16LE(dst []byte, samples []int32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(SampleToInt16(s)))
	}
	return dst
}

// DecodeS16LE converts s16le bytes to int32 samples in 24-bit range.
// A trailing odd byte is ignored.
func DecodeS16LE(data []byte) []int32 {
	samples := make([]int32, len(data)/2)
	for i := range samples {
		samples[i] = SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return samples
}

// Downmix averages interleaved channels into mono
func Downmix(samples []int32, channels int) []int32 {
	if channels <= 1 {
		return samples
	}
	out := make([]int32, len(samples)/channels)
	for i := range out {
		var sum int64
		for ch := 0; ch < channels; ch++ {
			sum += int64(samples[i*channels+ch])
		}
		out[i] = int32(sum / int64(channels))
	}
	return out
}

// ApplyVolume scales an s16le frame in place and returns it.
// Volume is 0-100; muted frames become silence.
func ApplyVolume(frame []byte, volume int, muted bool) []byte {
	multiplier := VolumeMultiplier(volume, muted)
	if multiplier == 1.0 {
		return frame
	}

	for i := 0; i+1 < len(frame); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(frame[i:]))
		scaled := int32(float64(sample) * multiplier)

		// Clamp to 16-bit range
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}

		binary.LittleEndian.PutUint16(frame[i:], uint16(int16(scaled)))
	}
	return frame
}

// VolumeMultiplier calculates the linear gain for a 0-100 volume
func VolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return float64(volume) / 100.0
}
