// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and float32 PCM sample conversion functions
// Package audio provides fundamental audio types and utilities for the
// cartwall playback pipeline.
//
// The pipeline sample format is interleaved float32 in [-1, 1]. This package
// defines the device Format (sample rate, channel count, period size) and the
// conversions used at the pipeline edges:
//   - float32 ↔ int16 sample conversion with full-scale clamping
//   - float32 ↔ 16-bit little-endian PCM byte encoding
//   - frame count ↔ wall-clock duration helpers
//
// Example:
//
//	f := audio.DefaultFormat() // 48kHz stereo, 20ms periods
//	buf := make([]byte, f.PeriodSamples()*2)
//	audio.EncodeInt16LE(buf, mix)
package audio
