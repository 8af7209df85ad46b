// ABOUTME: Decoder interface definition and format dispatch
// ABOUTME: Selects a codec implementation once per open, by extension
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Decoder produces interleaved float32 PCM in [-1, 1] at the source's native
// sample rate and channel layout.
type Decoder interface {
	// SampleRate returns the native sample rate in Hz.
	SampleRate() int

	// Channels returns the native channel count.
	Channels() int

	// Length returns the total frame count, or -1 when unknown.
	Length() int64

	// ReadSamples fills dst with interleaved samples and returns the number
	// of samples written. Returns io.EOF at end of stream.
	ReadSamples(dst []float32) (int, error)

	// Seek repositions the stream to the given frame.
	Seek(frame int64) error

	// Close releases decoder resources.
	Close() error
}

var (
	// ErrUnknownFormat reports a container that no codec claims.
	ErrUnknownFormat = errors.New("unrecognized audio format")

	// ErrUnsupportedLayout reports a recognized container with a sample
	// layout the codec implementation cannot produce.
	ErrUnsupportedLayout = errors.New("unsupported sample layout")

	// ErrTruncated reports a stream that ended inside a structure.
	ErrTruncated = errors.New("truncated audio stream")
)

// Extensions lists the file extensions Open dispatches on.
func Extensions() []string {
	return []string{"wav", "wave", "mp3", "flac", "ogg", "oga"}
}

// Open opens the file at path and selects a decoder by extension. The file
// is closed when the decoder is closed.
func Open(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	d, err := OpenReader(f, ext, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

// OpenReader selects a decoder for r by extension hint. closer, when
// non-nil, is closed together with the decoder.
func OpenReader(r io.ReadSeeker, ext string, closer io.Closer) (Decoder, error) {
	switch strings.ToLower(ext) {
	case "wav", "wave":
		return newWAV(r, closer)
	case "mp3":
		return newMP3(r, closer)
	case "flac":
		return newFLAC(r, closer)
	case "ogg", "oga":
		return newVorbis(r, closer)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
}

// closeBoth closes a decoder-owned closer after its codec state, keeping the
// first error.
func closeBoth(first error, closer io.Closer) error {
	if closer == nil {
		return first
	}
	if err := closer.Close(); first == nil {
		return err
	}
	return first
}
