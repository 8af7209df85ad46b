// ABOUTME: Tests for the mix primitives: gain ramps, channel layout, soft limiter
// ABOUTME: Also covers pull behavior for idle engines and odd buffer sizes
package engine

import (
	"math"
	"testing"
)

func TestSoftLimitPassesBelowKnee(t *testing.T) {
	for _, v := range []float32{0, 0.3, -0.3, 0.5, -0.79, 0.8, -0.8} {
		if got := softLimit(v); got != v {
			t.Errorf("softLimit(%v): expected passthrough, got %v", v, got)
		}
	}
}

func TestSoftLimitCompressesAboveKnee(t *testing.T) {
	tests := []struct {
		in   float32
		want float64
	}{
		// 0.8 + 0.2*(1 - 1/(1 + overshoot*5))
		{1.8, 0.8 + 0.2*(5.0 / 6.0)},
		{-1.8, -(0.8 + 0.2*(5.0 / 6.0))},
		{3.0, 0.8 + 0.2*(11.0 / 12.0)},
		{1.0, 0.8 + 0.2*(1.0 / 2.0)},
	}
	for _, tt := range tests {
		got := softLimit(tt.in)
		if math.Abs(float64(got)-tt.want) > 1e-6 {
			t.Errorf("softLimit(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestSoftLimitNeverExceedsFullScale(t *testing.T) {
	for v := float32(0.8); v < 100; v *= 1.5 {
		got := softLimit(v)
		if got >= 1.0 {
			t.Fatalf("softLimit(%v) = %v, expected < 1.0", v, got)
		}
		if neg := softLimit(-v); neg <= -1.0 {
			t.Fatalf("softLimit(%v) = %v, expected > -1.0", -v, neg)
		}
	}
}

func TestSoftLimitMonotonic(t *testing.T) {
	prev := softLimit(0.8)
	for v := float32(0.81); v < 5; v += 0.01 {
		got := softLimit(v)
		if got < prev {
			t.Fatalf("softLimit not monotonic at %v: %v then %v", v, prev, got)
		}
		prev = got
	}
}

func TestSoftLimitContinuousAtKnee(t *testing.T) {
	just := softLimit(0.8000001)
	if math.Abs(float64(just)-0.8) > 1e-5 {
		t.Errorf("expected continuity at the knee, got %v", just)
	}
}

func TestMixRampLinearSteps(t *testing.T) {
	dst := make([]float32, 8)
	src := []float32{1, 1, 1, 1, 1, 1, 1, 1}

	mixRamp(dst, src, 1, 0, 1)

	// step = 1/8, applied before the first frame, landing exactly on
	// the target at the last frame.
	for i, v := range dst {
		want := float32(i+1) / 8
		if v != want {
			t.Errorf("frame %d: expected %v, got %v", i, want, v)
		}
	}
	if dst[7] != 1.0 {
		t.Errorf("expected ramp to land on target, got %v", dst[7])
	}
}

func TestMixRampFlatGain(t *testing.T) {
	dst := make([]float32, 4)
	src := []float32{0.5, 0.5, 0.5, 0.5}

	mixRamp(dst, src, 1, 0.5, 0.5)

	for i, v := range dst {
		if v != 0.25 {
			t.Errorf("frame %d: expected 0.25, got %v", i, v)
		}
	}
}

func TestMixRampAccumulates(t *testing.T) {
	dst := []float32{1, 1, 1, 1}
	src := []float32{0.5, 0.5, 0.5, 0.5}

	mixRamp(dst, src, 1, 1, 1)

	for i, v := range dst {
		if v != 1.5 {
			t.Errorf("frame %d: expected 1.5, got %v", i, v)
		}
	}
}

func TestMixRampStereoPairsShareGain(t *testing.T) {
	dst := make([]float32, 8)
	src := []float32{1, 1, 1, 1, 1, 1, 1, 1}

	mixRamp(dst, src, 2, 0, 1)

	for f := 0; f < 4; f++ {
		l, r := dst[f*2], dst[f*2+1]
		if l != r {
			t.Errorf("frame %d: expected equal channel gains, got %v and %v", f, l, r)
		}
	}
	if dst[0] != 0.25 {
		t.Errorf("expected first stereo frame at 1/4 gain, got %v", dst[0])
	}
}

func TestConvertLayoutMonoToStereo(t *testing.T) {
	src := []float32{0.1, 0.2, 0.3}
	scratch := make([]float32, 6)

	out := convertLayout(src, 1, 2, scratch)

	want := []float32{0.1, 0.1, 0.2, 0.2, 0.3, 0.3}
	if len(out) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(out))
	}
	for i, v := range out {
		if v != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestConvertLayoutStereoToMono(t *testing.T) {
	src := []float32{0.2, 0.4, -0.2, -0.4}
	scratch := make([]float32, 2)

	out := convertLayout(src, 2, 1, scratch)

	if len(out) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(out))
	}
	if out[0] != 0.3 {
		t.Errorf("expected average 0.3, got %v", out[0])
	}
	if out[1] != -0.3 {
		t.Errorf("expected average -0.3, got %v", out[1])
	}
}

func TestConvertLayoutMatchingPassthrough(t *testing.T) {
	src := []float32{0.1, 0.2}

	out := convertLayout(src, 2, 2, nil)

	if &out[0] != &src[0] {
		t.Error("expected matching layouts to pass the slice through")
	}
}

func TestPullIdleZeroFills(t *testing.T) {
	e := newTestEngine(t, Config{})

	out := []float32{0.7, -0.7, 0.7, -0.7}
	e.Pull(out)

	if !allEqual(out, 0) {
		t.Errorf("expected an idle pull to zero the buffer, got %v", out)
	}
	if stats := e.Stats(); stats.Periods != 1 {
		t.Errorf("expected 1 period served, got %d", stats.Periods)
	}
}

func TestPendingInstanceContributesSilence(t *testing.T) {
	e := newTestEngine(t, Config{})

	// The gate never opens, so the worker blocks before its first
	// block and the instance stays pending.
	gate := make(chan struct{})
	t.Cleanup(func() { close(gate) })
	if _, err := e.Trigger(&gatedSource{inner: rampSource("stuck.wav", 100), gate: gate}, 1.0, false); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	out := make([]float32, testPeriod)
	e.Pull(out)
	if !allEqual(out, 0) {
		t.Error("expected silence from a pending instance")
	}
	if stats := e.Stats(); stats.Starved != 0 {
		t.Errorf("expected pending instances not to count as starved, got %d", stats.Starved)
	}
}

func TestPullArbitrarySizes(t *testing.T) {
	x := float32(9830) / 32768

	// Devices do not pull in engine periods; both smaller and larger
	// callbacks consume the block queue across boundaries.
	for _, size := range []int{13, 100} {
		e := newTestEngine(t, Config{})
		if _, err := e.Trigger(constSource("odd.wav", 8000, 9830), 1.0, false); err != nil {
			t.Fatalf("trigger: %v", err)
		}
		pullUntil(t, e, size, func(out []float32) bool { return allEqual(out, x) })
		e.Close()
	}
}
