// ABOUTME: Tests for audio types
// ABOUTME: Tests format helpers and sample conversion functions
package audio

import (
	"testing"
	"time"
)

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"full scale", 1.0, 32767},
		{"negative full scale", -1.0, -32767},
		{"half scale", 0.5, 16383},
		{"clamped above", 1.7, 32767},
		{"clamped below", -2.3, -32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected float32
	}{
		{"zero", 0, 0},
		{"max", 32767, 32767.0 / 32768.0},
		{"min", -32768, -1.0},
		{"half", 16384, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
		})
	}
}

func TestEncodeDecodeInt16LE(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.99, -0.99}
	buf := make([]byte, len(samples)*2)
	EncodeInt16LE(buf, samples)

	decoded := make([]float32, len(samples))
	DecodeInt16LE(decoded, buf)

	for i, original := range samples {
		diff := decoded[i] - original
		if diff < 0 {
			diff = -diff
		}
		// Quantization plus the 32767/32768 scale mismatch stays under 1e-4
		if diff > 1e-4 {
			t.Errorf("sample %d: round-trip %f -> %f, diff %f", i, original, decoded[i], diff)
		}
	}
}

func TestFormatPeriod(t *testing.T) {
	f := DefaultFormat()
	if f.PeriodSamples() != DefaultPeriodFrames*DefaultChannels {
		t.Errorf("expected %d period samples, got %d", DefaultPeriodFrames*DefaultChannels, f.PeriodSamples())
	}
	if f.PeriodDuration() != 20*time.Millisecond {
		t.Errorf("expected 20ms period, got %v", f.PeriodDuration())
	}
}

func TestFrameDurationConversion(t *testing.T) {
	tests := []struct {
		name   string
		frames int64
		rate   int
		d      time.Duration
	}{
		{"one second", 48000, 48000, time.Second},
		{"half second", 22050, 44100, 500 * time.Millisecond},
		{"zero", 0, 48000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FramesToDuration(tt.frames, tt.rate); got != tt.d {
				t.Errorf("FramesToDuration: expected %v, got %v", tt.d, got)
			}
			if got := DurationToFrames(tt.d, tt.rate); got != tt.frames {
				t.Errorf("DurationToFrames: expected %d, got %d", tt.frames, got)
			}
		})
	}
}
