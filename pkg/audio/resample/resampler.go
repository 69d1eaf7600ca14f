// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Carries the last input frame across chunks so boundaries interpolate cleanly
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It is stateful: feed consecutive chunks of one stream through Process.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64 // fractional frame index into prev+input
	prev       []int32 // last frame of the previous chunk, one sample per channel
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		prev:       make([]int32, channels),
	}
}

// Passthrough reports whether input and output rates match
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Process appends the resampled interleaved frames of input to dst
func (r *Resampler) Process(dst, input []int32) []int32 {
	if r.Passthrough() {
		return append(dst, input...)
	}

	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return dst
	}

	// Frame 0 of the virtual stream is the carried-over frame once primed
	offset := 0
	if r.primed {
		offset = 1
	}
	streamFrames := inputFrames + offset

	sample := func(frame, ch int) int32 {
		if frame < offset {
			return r.prev[ch]
		}
		return input[(frame-offset)*r.channels+ch]
	}

	for {
		idx := int(r.position)
		if idx+1 >= streamFrames {
			break
		}
		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(sample(idx, ch))
			s2 := float64(sample(idx+1, ch))
			dst = append(dst, int32(s1*(1.0-frac)+s2*frac))
		}
		r.position += r.ratio
	}

	// Keep the last frame; everything before it is consumed
	r.position -= float64(streamFrames - 1)
	copy(r.prev, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.primed = true

	return dst
}

// Reset clears carried state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples input samples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}
