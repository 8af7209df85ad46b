// ABOUTME: Audio encoder package for writing mixed output to files
// ABOUTME: Provides a streaming 16-bit PCM WAV writer
// Package encode provides audio encoders for rendered output.
//
// The WAV writer accepts interleaved float32 samples and streams them
// as 16-bit PCM, patching the RIFF sizes when closed.
//
// Example:
//
//	w, err := encode.NewWAVWriter(f, 48000, 2)
//	err = w.WriteSamples(period)
//	err = w.Close()
package encode
