// ABOUTME: FLAC audio decoder backed by mewkiz/flac
// ABOUTME: Decodes whole blocks and parks the overflow until the next read
package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC streams. ParseNext yields whole blocks, so
// samples past the caller's buffer wait in pending until the next read.
type FLACDecoder struct {
	stream *flac.Stream
	closer io.Closer

	sampleRate int
	channels   int
	frames     int64

	pending []float32
	off     int
	skip    int64 // frames to discard after a coarse seek
	atEnd   bool
}

func newFLAC(r io.ReadSeeker, closer io.Closer) (*FLACDecoder, error) {
	stream, err := flac.NewSeek(r)
	if err != nil {
		return nil, fmt.Errorf("flac: %w: %v", ErrUnknownFormat, err)
	}

	info := stream.Info
	f := &FLACDecoder{
		stream:     stream,
		closer:     closer,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		frames:     int64(info.NSamples),
	}
	if f.frames == 0 {
		f.frames = -1
	}
	if f.channels < 1 || f.channels > 2 {
		return nil, fmt.Errorf("flac: %w: %d channels", ErrUnsupportedLayout, f.channels)
	}
	return f, nil
}

// SampleRate returns the native sample rate.
func (f *FLACDecoder) SampleRate() int { return f.sampleRate }

// Channels returns the native channel count.
func (f *FLACDecoder) Channels() int { return f.channels }

// Length returns the total frame count, or -1 when the stream info
// does not carry one.
func (f *FLACDecoder) Length() int64 { return f.frames }

// ReadSamples fills dst with interleaved samples.
func (f *FLACDecoder) ReadSamples(dst []float32) (int, error) {
	filled := 0
	for filled < len(dst) {
		if f.off < len(f.pending) {
			n := copy(dst[filled:], f.pending[f.off:])
			f.off += n
			filled += n
			continue
		}
		if f.atEnd {
			break
		}
		if err := f.decodeBlock(); err != nil {
			if err == io.EOF {
				f.atEnd = true
				continue
			}
			return filled, fmt.Errorf("flac: %w", err)
		}
	}
	if filled == 0 {
		return 0, io.EOF
	}
	return filled, nil
}

// decodeBlock parses the next frame into pending, honoring any seek skip.
func (f *FLACDecoder) decodeBlock() error {
	frame, err := f.stream.ParseNext()
	if err != nil {
		return err
	}

	blockFrames := int64(len(frame.Subframes[0].Samples))
	start := int64(0)
	if f.skip > 0 {
		if f.skip >= blockFrames {
			f.skip -= blockFrames
			return nil
		}
		start = f.skip
		f.skip = 0
	}

	max := float32(int64(1)<<(frame.BitsPerSample-1) - 1)
	need := int(blockFrames-start) * f.channels
	if cap(f.pending) < need {
		f.pending = make([]float32, need)
	}
	f.pending = f.pending[:need]
	f.off = 0

	idx := 0
	for i := start; i < blockFrames; i++ {
		for ch := 0; ch < f.channels; ch++ {
			f.pending[idx] = float32(frame.Subframes[ch].Samples[i]) / max
			idx++
		}
	}
	return nil
}

// Seek repositions to the given frame. The stream seeks to a block
// boundary at or before the target and the remainder is skipped on the
// next read.
func (f *FLACDecoder) Seek(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if f.frames >= 0 && frame >= f.frames {
		f.pending = f.pending[:0]
		f.off = 0
		f.skip = 0
		f.atEnd = true
		return nil
	}

	got, err := f.stream.Seek(uint64(frame))
	if err != nil {
		return fmt.Errorf("flac: %w", err)
	}
	f.pending = f.pending[:0]
	f.off = 0
	f.skip = frame - int64(got)
	f.atEnd = false
	return nil
}

// Close releases the underlying file.
func (f *FLACDecoder) Close() error {
	return closeBoth(nil, f.closer)
}
