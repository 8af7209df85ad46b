// ABOUTME: Audio output package for playing mixed audio
// ABOUTME: Provides the pull-model Sink interface and oto, malgo, PortAudio, file sinks
// Package output provides audio playback sinks.
//
// A Sink owns the output clock: once started it calls the supplied
// PullFunc whenever the device (or, for the file sink, a wall-clock
// timer) needs another block of interleaved float32 samples.
//
// oto is the default desktop backend. malgo additionally reports
// device loss. PortAudio builds behind the portaudio tag.
//
// Example:
//
//	sink := output.NewOto(audio.DefaultFormat())
//	err := sink.Start(mixer.Pull)
//	err = sink.Close()
package output
