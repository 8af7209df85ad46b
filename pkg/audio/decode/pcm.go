// ABOUTME: Raw PCM decoder for headerless s16le streams
// ABOUTME: Rate and layout are declared by the caller since raw streams carry no header
package decode

import (
	"fmt"
	"io"

	"github.com/cartwall/cartwall-go/pkg/audio"
)

// PCMDecoder decodes a headerless stream of interleaved s16le samples.
// There is no container to probe, so the caller declares the rate and
// channel count.
type PCMDecoder struct {
	r      io.ReadSeeker
	closer io.Closer

	sampleRate int
	channels   int
	frames     int64
	pos        int64

	buf []byte
}

// NewPCM wraps r as a decoder for raw s16le audio. The whole stream is
// sample data.
func NewPCM(r io.ReadSeeker, sampleRate, channels int, closer io.Closer) (*PCMDecoder, error) {
	if sampleRate <= 0 || channels < 1 || channels > 2 {
		return nil, fmt.Errorf("pcm: %w: %dHz %dch", ErrUnsupportedLayout, sampleRate, channels)
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("pcm: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("pcm: %w", err)
	}

	return &PCMDecoder{
		r:          r,
		closer:     closer,
		sampleRate: sampleRate,
		channels:   channels,
		frames:     size / int64(2*channels),
	}, nil
}

// SampleRate returns the declared sample rate.
func (p *PCMDecoder) SampleRate() int { return p.sampleRate }

// Channels returns the declared channel count.
func (p *PCMDecoder) Channels() int { return p.channels }

// Length returns the total frame count.
func (p *PCMDecoder) Length() int64 { return p.frames }

// ReadSamples fills dst with interleaved samples.
func (p *PCMDecoder) ReadSamples(dst []float32) (int, error) {
	remaining := (p.frames - p.pos) * int64(p.channels)
	if remaining <= 0 {
		return 0, io.EOF
	}
	want := len(dst)
	if int64(want) > remaining {
		want = int(remaining)
	}

	need := want * 2
	if cap(p.buf) < need {
		p.buf = make([]byte, need)
	}
	p.buf = p.buf[:need]

	n, err := io.ReadFull(p.r, p.buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("pcm: %w", err)
	}
	got := n / 2
	if got == 0 {
		return 0, io.EOF
	}

	audio.DecodeInt16LE(dst[:got], p.buf[:got*2])
	p.pos += int64(got / p.channels)
	return got, nil
}

// Seek repositions to the given frame.
func (p *PCMDecoder) Seek(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if frame > p.frames {
		frame = p.frames
	}
	if _, err := p.r.Seek(frame*int64(2*p.channels), io.SeekStart); err != nil {
		return fmt.Errorf("pcm: %w", err)
	}
	p.pos = frame
	return nil
}

// Close releases the underlying file.
func (p *PCMDecoder) Close() error {
	return closeBoth(nil, p.closer)
}
