// ABOUTME: Typed errors for playback commands and device failures
// ABOUTME: Every failure surfaces as one of these, never as a silent no-op
package engine

import (
	"fmt"

	"github.com/cartwall/cartwall-go/pkg/audio/decode"
)

// DecodeError reports a clip that could not be decoded. It is attached
// to the failing instance; playback of other instances is unaffected.
type DecodeError struct {
	Clip   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Clip, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// newDecodeError classifies err into an operator-readable reason.
func newDecodeError(clip string, err error) *DecodeError {
	return &DecodeError{Clip: clip, Reason: decode.Classify(err), Err: err}
}

// CapacityError reports a trigger rejected because the registry is at
// its configured instance limit. Existing instances are never evicted.
type CapacityError struct {
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("instance capacity exceeded (limit %d)", e.Limit)
}

// UnknownInstanceError reports a command aimed at an id that does not
// exist or has already reached a terminal state.
type UnknownInstanceError struct {
	ID uint64
}

func (e *UnknownInstanceError) Error() string {
	return fmt.Sprintf("unknown instance %d", e.ID)
}

// DeviceError reports a lost or failed output device. The engine
// degrades: commands are still accepted, state is preserved, and
// playback resumes when a sink reattaches.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("playback device: %v", e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
