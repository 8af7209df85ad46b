// ABOUTME: Ogg Vorbis audio decoder backed by jfreymuth/oggvorbis
// ABOUTME: The library decodes straight to float32, so reads pass through
package decode

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// VorbisDecoder decodes Ogg Vorbis streams.
type VorbisDecoder struct {
	r      *oggvorbis.Reader
	closer io.Closer
	frames int64
}

func newVorbis(r io.ReadSeeker, closer io.Closer) (*VorbisDecoder, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("vorbis: %w: %v", ErrUnknownFormat, err)
	}
	if ch := dec.Channels(); ch < 1 || ch > 2 {
		return nil, fmt.Errorf("vorbis: %w: %d channels", ErrUnsupportedLayout, ch)
	}

	frames := int64(-1)
	if l := dec.Length(); l > 0 {
		frames = l
	}
	return &VorbisDecoder{r: dec, closer: closer, frames: frames}, nil
}

// SampleRate returns the native sample rate.
func (v *VorbisDecoder) SampleRate() int { return v.r.SampleRate() }

// Channels returns the native channel count.
func (v *VorbisDecoder) Channels() int { return v.r.Channels() }

// Length returns the total frame count, or -1 when the stream was not
// seekable enough to size.
func (v *VorbisDecoder) Length() int64 { return v.frames }

// ReadSamples fills dst with interleaved samples. The library decodes
// to float32 in [-1, 1] natively, so values copy straight through. The
// returned count is in samples, not frames.
func (v *VorbisDecoder) ReadSamples(dst []float32) (int, error) {
	n, err := v.r.Read(dst)
	if n > 0 {
		return n, nil
	}
	if err == nil || err == io.EOF {
		return 0, io.EOF
	}
	return 0, fmt.Errorf("vorbis: %w", err)
}

// Seek repositions to the given frame.
func (v *VorbisDecoder) Seek(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if v.frames >= 0 && frame > v.frames {
		frame = v.frames
	}
	if err := v.r.SetPosition(frame); err != nil {
		return fmt.Errorf("vorbis: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (v *VorbisDecoder) Close() error {
	return closeBoth(nil, v.closer)
}
