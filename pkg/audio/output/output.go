// ABOUTME: Audio sink interface definition
// ABOUTME: Sinks drive a pull function from the device or file clock
package output

import "errors"

var (
	// ErrAlreadyStarted reports a second Start on a running sink.
	ErrAlreadyStarted = errors.New("sink already started")

	// ErrDeviceStopped reports a device that stopped outside of Close,
	// usually because it was unplugged or claimed by another process.
	ErrDeviceStopped = errors.New("playback device stopped")
)

// PullFunc fills out with the next interleaved float32 samples. It is
// called from the sink's clock and must return promptly; when there is
// nothing to play it fills silence.
type PullFunc func(out []float32)

// Sink paces a PullFunc against an output clock.
type Sink interface {
	// Start begins pulling audio. The pull function is called from the
	// sink's own thread until Close.
	Start(pull PullFunc) error

	// Close stops the clock and releases the device.
	Close() error
}
