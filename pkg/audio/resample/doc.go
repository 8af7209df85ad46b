// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts streaming audio between different sample rates
// Package resample provides streaming audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates. Handles
// both upsampling and downsampling, and carries interpolation state across
// calls so a stream may be processed in arbitrary block sizes.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out := make([]float32, r.OutputMax(len(in)))
//	n := r.Process(in, out)
package resample
