// ABOUTME: Audio type definitions
// ABOUTME: Defines device formats and PCM sample conversions
package audio

import "time"

const (
	// DefaultSampleRate is the device rate the engine mixes at.
	DefaultSampleRate = 48000

	// DefaultChannels is the device channel count (stereo).
	DefaultChannels = 2

	// DefaultPeriodFrames is the frames per device pull (20ms at 48kHz).
	DefaultPeriodFrames = 960
)

// Format describes the device-side stream format. Frames are interleaved
// float32 in [-1, 1]; a period is the block pulled per device callback.
type Format struct {
	SampleRate   int
	Channels     int
	PeriodFrames int
}

// DefaultFormat returns the engine's default device format.
func DefaultFormat() Format {
	return Format{
		SampleRate:   DefaultSampleRate,
		Channels:     DefaultChannels,
		PeriodFrames: DefaultPeriodFrames,
	}
}

// PeriodSamples returns the interleaved sample count of one period.
func (f Format) PeriodSamples() int {
	return f.PeriodFrames * f.Channels
}

// PeriodDuration returns the wall-clock length of one period.
func (f Format) PeriodDuration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.PeriodFrames) * time.Second / time.Duration(f.SampleRate)
}

// FramesToDuration converts a frame count at rate to wall-clock time.
func FramesToDuration(frames int64, rate int) time.Duration {
	if rate == 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(rate)
}

// DurationToFrames converts wall-clock time to a frame count at rate.
func DurationToFrames(d time.Duration, rate int) int64 {
	return int64(d) * int64(rate) / int64(time.Second)
}

// SampleToInt16 converts a float32 sample to int16, clamping to full scale.
func SampleToInt16(sample float32) int16 {
	if sample > 1.0 {
		sample = 1.0
	} else if sample < -1.0 {
		sample = -1.0
	}
	return int16(sample * 32767)
}

// SampleFromInt16 converts an int16 sample to float32 in [-1, 1).
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// EncodeInt16LE converts float32 samples to 16-bit little-endian PCM bytes.
// dst must hold len(samples)*2 bytes.
func EncodeInt16LE(dst []byte, samples []float32) {
	for i, s := range samples {
		v := SampleToInt16(s)
		dst[i*2] = byte(v)
		dst[i*2+1] = byte(v >> 8)
	}
}

// DecodeInt16LE converts 16-bit little-endian PCM bytes to float32 samples.
// dst must hold len(src)/2 samples.
func DecodeInt16LE(dst []float32, src []byte) {
	n := len(src) / 2
	for i := 0; i < n; i++ {
		v := int16(uint16(src[i*2]) | uint16(src[i*2+1])<<8)
		dst[i] = SampleFromInt16(v)
	}
}
