// ABOUTME: MP3 audio decoder backed by go-mp3
// ABOUTME: go-mp3 exposes a seekable s16le stereo stream, so conversion is a thin shim
package decode

import (
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/cartwall/cartwall-go/pkg/audio"
)

// mp3FrameBytes is the size of one decoded frame: two s16le channels.
// go-mp3 always outputs stereo regardless of the source layout.
const mp3FrameBytes = 4

// MP3Decoder decodes MPEG-1 layer 3 files.
type MP3Decoder struct {
	d      *mp3.Decoder
	closer io.Closer
	frames int64
	buf    []byte
}

func newMP3(r io.ReadSeeker, closer io.Closer) (*MP3Decoder, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w: %v", ErrUnknownFormat, err)
	}

	frames := int64(-1)
	if l := d.Length(); l > 0 {
		frames = l / mp3FrameBytes
	}

	return &MP3Decoder{d: d, closer: closer, frames: frames}, nil
}

// SampleRate returns the native sample rate.
func (m *MP3Decoder) SampleRate() int { return m.d.SampleRate() }

// Channels returns 2. go-mp3 upmixes mono sources during decode.
func (m *MP3Decoder) Channels() int { return 2 }

// Length returns the total frame count, or -1 when the source is not
// seekable enough for go-mp3 to size the stream.
func (m *MP3Decoder) Length() int64 { return m.frames }

// ReadSamples fills dst with interleaved samples.
func (m *MP3Decoder) ReadSamples(dst []float32) (int, error) {
	want := len(dst)
	want -= want % 2 // whole frames only
	if want == 0 {
		return 0, nil
	}

	need := want * 2
	if cap(m.buf) < need {
		m.buf = make([]byte, need)
	}
	m.buf = m.buf[:need]

	n, err := io.ReadFull(m.d, m.buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, fmt.Errorf("mp3: %w", err)
	}
	got := n / 2
	if got == 0 {
		return 0, io.EOF
	}

	audio.DecodeInt16LE(dst[:got], m.buf[:got*2])
	return got, nil
}

// Seek repositions to the given frame.
func (m *MP3Decoder) Seek(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if m.frames >= 0 && frame > m.frames {
		frame = m.frames
	}
	if _, err := m.d.Seek(frame*mp3FrameBytes, io.SeekStart); err != nil {
		return fmt.Errorf("mp3: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (m *MP3Decoder) Close() error {
	return closeBoth(nil, m.closer)
}
