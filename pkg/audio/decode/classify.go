// ABOUTME: Maps decode failures to short operator-readable reasons
// ABOUTME: Used in playback error reports and by the probe tool
package decode

import (
	"errors"
	"io"
	"os"
)

// Classify returns a short operator-readable reason for a decode
// failure, suitable for board and log display.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, os.ErrNotExist):
		return "file not found"
	case errors.Is(err, os.ErrPermission):
		return "file unreadable"
	case errors.Is(err, ErrUnknownFormat):
		return "unrecognized audio format"
	case errors.Is(err, ErrUnsupportedLayout):
		return "unsupported sample layout"
	case errors.Is(err, ErrTruncated), errors.Is(err, io.ErrUnexpectedEOF):
		return "truncated audio stream"
	default:
		return "decode failed"
	}
}
