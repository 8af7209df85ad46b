// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Carries fractional position and a boundary frame across calls
package resample

// Resampler converts interleaved float32 audio between sample rates using
// linear interpolation. It is streaming: the fractional read position and the
// last input frame are carried across Process calls, so feeding a stream in
// arbitrary block sizes produces the same output as one large call.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64 // input frames advanced per output frame
	position   float64 // fractional frame position into carry+pending input
	carry      []float32
	hasCarry   bool
}

// New creates a resampler from inputRate to outputRate for interleaved
// channel data.
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		carry:      make([]float32, channels),
	}
}

// Ratio returns input frames consumed per output frame.
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// Process consumes all of input and writes interpolated samples to output,
// returning the number of output samples written. output must hold at least
// OutputMax(len(input)) samples or input frames are dropped.
func (r *Resampler) Process(input, output []float32) int {
	ch := r.channels
	inFrames := len(input) / ch
	outFrames := len(output) / ch

	// Virtual stream: optional carry frame followed by input frames.
	carryFrames := 0
	if r.hasCarry {
		carryFrames = 1
	}
	virtual := carryFrames + inFrames

	frame := func(i int, c int) float32 {
		if i < carryFrames {
			return r.carry[c]
		}
		return input[(i-carryFrames)*ch+c]
	}

	outIdx := 0
	for outIdx < outFrames {
		i := int(r.position)
		if i+1 > virtual-1 {
			break
		}
		frac := float32(r.position - float64(i))
		for c := 0; c < ch; c++ {
			s1 := frame(i, c)
			s2 := frame(i+1, c)
			output[outIdx*ch+c] = s1 + (s2-s1)*frac
		}
		outIdx++
		r.position += r.ratio
	}

	// Keep the last reachable frame for interpolation across the boundary.
	last := int(r.position)
	if last <= virtual-1 {
		for c := 0; c < ch; c++ {
			r.carry[c] = frame(last, c)
		}
		r.hasCarry = true
		r.position -= float64(last)
	} else {
		// Downsampling skipped past the end of this block.
		r.hasCarry = false
		r.position -= float64(virtual)
	}

	return outIdx * ch
}

// OutputMax returns a safe output buffer size in samples for a Process call
// with inputSamples of input.
func (r *Resampler) OutputMax(inputSamples int) int {
	inFrames := inputSamples / r.channels
	outFrames := int(float64(inFrames+1)/r.ratio) + 2
	return outFrames * r.channels
}

// Reset clears carried state, for use after a seek.
func (r *Resampler) Reset() {
	r.position = 0
	r.hasCarry = false
	for i := range r.carry {
		r.carry[i] = 0
	}
}
