// ABOUTME: Clip: an immutable, probed reference to a decodable audio asset
// ABOUTME: Backed by a file path or in-memory bytes; every open yields a fresh decoder
package library

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cartwall/cartwall-go/pkg/audio"
	"github.com/cartwall/cartwall-go/pkg/audio/decode"
)

// Clip is a playable asset with a stable handle and metadata probed at
// add time. Clips are immutable; the engine borrows them and opens a
// fresh decoder per trigger, so concurrent instances share no state.
type Clip struct {
	id   string
	name string

	path string // file-backed when set
	data []byte // memory-backed otherwise
	ext  string

	sampleRate int
	channels   int
	frames     int64 // -1 when the container does not declare it
}

// ID returns the clip's stable uuid handle.
func (c *Clip) ID() string { return c.id }

// Name returns the display name.
func (c *Clip) Name() string { return c.name }

// Path returns the backing file path, empty for memory-backed clips.
func (c *Clip) Path() string { return c.path }

// SampleRate returns the probed native sample rate.
func (c *Clip) SampleRate() int { return c.sampleRate }

// Channels returns the probed native channel count.
func (c *Clip) Channels() int { return c.channels }

// Frames returns the probed total frame count, -1 when unknown.
func (c *Clip) Frames() int64 { return c.frames }

// Duration returns the probed play time, 0 when the length is unknown.
func (c *Clip) Duration() time.Duration {
	if c.frames < 0 {
		return 0
	}
	return audio.FramesToDuration(c.frames, c.sampleRate)
}

// OpenDecoder opens a fresh decoder positioned at frame zero.
func (c *Clip) OpenDecoder() (decode.Decoder, error) {
	if c.path != "" {
		return decode.Open(c.path)
	}
	return decode.OpenReader(bytes.NewReader(c.data), c.ext, nil)
}

// probe opens the clip once to validate it and capture metadata.
func (c *Clip) probe() error {
	dec, err := c.OpenDecoder()
	if err != nil {
		return err
	}
	defer dec.Close()

	c.sampleRate = dec.SampleRate()
	c.channels = dec.Channels()
	c.frames = dec.Length()
	return nil
}

// ProbeError reports an asset the library refused, with a classified
// operator-readable reason.
type ProbeError struct {
	Name   string
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %s", e.Name, e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

func newProbeError(name string, err error) *ProbeError {
	return &ProbeError{Name: name, Reason: decode.Classify(err), Err: err}
}

func newClipID() string {
	return uuid.New().String()
}
