// ABOUTME: Mix path: drains instance queues, applies gain ramps, sums, and limits
// ABOUTME: Runs on the sink's pull thread; never blocks on a decoder
package engine

// Limiter knee. Samples at or below the knee pass through untouched;
// overshoot is compressed onto the remaining headroom and approaches
// but never reaches full scale.
const (
	limiterKnee  = 0.8
	limiterSlope = 5.0
)

// Pull fills out with the next span of mixed audio. It is the sink
// contract: out is interleaved device-format float32, and the engine
// fills however many frames the device asks for. Instances that cannot
// supply samples contribute silence, never a stall.
func (e *Engine) Pull(out []float32) {
	for i := range out {
		out[i] = 0
	}

	starved := 0
	e.reg.mu.RLock()
	for _, in := range e.reg.byID {
		if e.mixInstance(in, out) {
			starved++
		}
	}
	e.reg.mu.RUnlock()

	limited := false
	for i, v := range out {
		if v > limiterKnee || v < -limiterKnee {
			out[i] = softLimit(v)
			limited = true
		}
	}

	e.periods.Add(1)
	if starved > 0 {
		e.starved.Add(uint64(starved))
	}
	if limited {
		e.limited.Add(1)
	}
}

// mixInstance adds one instance's queued audio to out, consuming
// partial blocks across pulls so any device buffer size works.
// Returns true when a playing instance could not fill its span.
func (e *Engine) mixInstance(in *instance, out []float32) bool {
	st := in.getState()
	if st != StatePlaying && st != StatePending {
		return false
	}

	// A seek retired everything before its generation, including a
	// block we may still be holding.
	gen := in.gen.Load()
	if in.cur.data != nil && in.cur.gen != gen {
		in.cur = block{}
		in.curOff = 0
	}

	target := in.effectiveGain()
	gain := in.prevGain
	in.prevGain = target

	channels := e.format.Channels
	idx := 0
	finished := false

	for idx < len(out) {
		if in.curOff >= len(in.cur.data) {
			if in.cur.final {
				in.pos.Store(in.cur.endPos)
				in.state.CompareAndSwap(int32(StatePlaying), int32(StateFinished))
				in.cur = block{}
				in.curOff = 0
				finished = true
				break
			}
			blk, ok := in.popBlock(gen)
			if !ok {
				break
			}
			if st == StatePending {
				if !in.state.CompareAndSwap(int32(StatePending), int32(StatePlaying)) {
					// Stopped or failed while priming; leave the block dropped.
					return false
				}
				st = StatePlaying
			}
			in.cur = blk
			in.curOff = 0
			continue
		}

		n := len(in.cur.data) - in.curOff
		if rem := len(out) - idx; n > rem {
			n = rem
		}
		mixRamp(out[idx:idx+n], in.cur.data[in.curOff:in.curOff+n], channels, gain, target)
		gain = target
		idx += n
		in.curOff += n

		if in.curOff == len(in.cur.data) && !in.cur.final {
			in.pos.Store(in.cur.endPos)
			in.cur = block{}
			in.curOff = 0
		}
	}

	return st == StatePlaying && !finished && idx < len(out)
}

// mixRamp accumulates src into dst, walking the gain linearly from the
// previous pull's value to the current target to avoid zipper clicks
// on volume and mute edges.
func mixRamp(dst, src []float32, channels int, from, to float32) {
	frames := len(src) / channels
	if frames == 0 {
		return
	}

	step := (to - from) / float32(frames)
	g := from
	i := 0
	for f := 0; f < frames; f++ {
		g += step
		for c := 0; c < channels; c++ {
			dst[i] += src[i] * g
			i++
		}
	}
}

// softLimit compresses a sample above the knee back under full scale,
// preserving sign. The curve is continuous at the knee and asymptotic
// to 1.0, so simultaneous full-volume instances saturate instead of
// wrapping.
func softLimit(v float32) float32 {
	a := v
	if a < 0 {
		a = -a
	}
	if a <= limiterKnee {
		return v
	}

	y := limiterKnee + (1-limiterKnee)*(1-1/(1+(a-limiterKnee)*limiterSlope))
	if v < 0 {
		return -y
	}
	return y
}
