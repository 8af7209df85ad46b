// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides Decoder interface and implementations for WAV, MP3, FLAC, Vorbis, raw PCM
// Package decode provides audio decoders for various containers.
//
// Supports: WAV (8/16/24/32-bit PCM and 32-bit float), MP3, FLAC,
// Ogg Vorbis, and headerless s16le PCM.
//
// All decoders implement the Decoder interface and output interleaved
// float32 samples at the file's native rate and layout. Seeking is
// frame-accurate for every format.
//
// Example:
//
//	d, err := decode.Open("stinger.wav")
//	n, err := d.ReadSamples(buf)
package decode
