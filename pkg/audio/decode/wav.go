// ABOUTME: WAV audio decoder
// ABOUTME: Validates with go-audio/wav, addresses the data chunk directly for exact seek
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Wave format tags from the fmt chunk.
const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// WAVDecoder decodes RIFF/WAVE files. The data chunk is addressed by offset
// arithmetic, so Seek is exact for every supported layout.
type WAVDecoder struct {
	r      io.ReadSeeker
	closer io.Closer

	sampleRate int
	channels   int
	bitDepth   int
	formatTag  int

	dataStart  int64 // byte offset of data chunk payload
	frames     int64
	blockAlign int64
	pos        int64 // frame position

	buf []byte
}

func newWAV(r io.ReadSeeker, closer io.Closer) (*WAVDecoder, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("wav: %w", ErrUnknownFormat)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("wav: %w", ErrTruncated)
	}

	w := &WAVDecoder{
		r:          r,
		closer:     closer,
		sampleRate: int(d.SampleRate),
		channels:   int(d.NumChans),
		bitDepth:   int(d.BitDepth),
	}
	if w.sampleRate <= 0 || w.channels <= 0 || w.channels > 2 || w.bitDepth < 8 {
		return nil, fmt.Errorf("wav: %w: %dHz %dch %d-bit", ErrUnsupportedLayout, w.sampleRate, w.channels, w.bitDepth)
	}

	if err := w.locateData(); err != nil {
		return nil, err
	}

	switch {
	case w.formatTag == wavFormatPCM && (w.bitDepth == 8 || w.bitDepth == 16 || w.bitDepth == 24 || w.bitDepth == 32):
	case w.formatTag == wavFormatFloat && w.bitDepth == 32:
	default:
		return nil, fmt.Errorf("wav: %w: format tag %d, %d-bit", ErrUnsupportedLayout, w.formatTag, w.bitDepth)
	}

	w.blockAlign = int64(w.channels * w.bitDepth / 8)
	return w, nil
}

// locateData walks the RIFF chunks to find the fmt tag and the data chunk
// extent. go-audio/wav validates the container but does not expose the data
// offset needed for random access.
func (w *WAVDecoder) locateData() error {
	if _, err := w.r.Seek(12, io.SeekStart); err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	var header [8]byte
	var dataLen int64
	for {
		if _, err := io.ReadFull(w.r, header[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return fmt.Errorf("wav: %w", err)
		}
		id := string(header[:4])
		size := int64(binary.LittleEndian.Uint32(header[4:]))

		switch id {
		case "fmt ":
			var fmtChunk [16]byte
			if size < 16 {
				return fmt.Errorf("wav: %w", ErrTruncated)
			}
			if _, err := io.ReadFull(w.r, fmtChunk[:]); err != nil {
				return fmt.Errorf("wav: %w", ErrTruncated)
			}
			w.formatTag = int(binary.LittleEndian.Uint16(fmtChunk[0:2]))
			if _, err := w.r.Seek(size-16+(size&1), io.SeekCurrent); err != nil {
				return fmt.Errorf("wav: %w", err)
			}
		case "data":
			pos, err := w.r.Seek(0, io.SeekCurrent)
			if err != nil {
				return fmt.Errorf("wav: %w", err)
			}
			w.dataStart = pos
			dataLen = size
			if _, err := w.r.Seek(size+(size&1), io.SeekCurrent); err != nil {
				return fmt.Errorf("wav: %w", err)
			}
		default:
			if _, err := w.r.Seek(size+(size&1), io.SeekCurrent); err != nil {
				return fmt.Errorf("wav: %w", err)
			}
		}
	}

	if w.dataStart == 0 || dataLen == 0 {
		return fmt.Errorf("wav: %w", ErrTruncated)
	}
	w.frames = dataLen / int64(w.channels*w.bitDepth/8)

	_, err := w.r.Seek(w.dataStart, io.SeekStart)
	return err
}

// SampleRate returns the native sample rate.
func (w *WAVDecoder) SampleRate() int { return w.sampleRate }

// Channels returns the native channel count.
func (w *WAVDecoder) Channels() int { return w.channels }

// Length returns the total frame count.
func (w *WAVDecoder) Length() int64 { return w.frames }

// ReadSamples fills dst with interleaved samples.
func (w *WAVDecoder) ReadSamples(dst []float32) (int, error) {
	remaining := (w.frames - w.pos) * int64(w.channels)
	if remaining <= 0 {
		return 0, io.EOF
	}
	want := len(dst)
	if int64(want) > remaining {
		want = int(remaining)
	}

	bytesPer := w.bitDepth / 8
	need := want * bytesPer
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	w.buf = w.buf[:need]

	n, err := io.ReadFull(w.r, w.buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("wav: %w", err)
	}
	got := n / bytesPer
	if got == 0 {
		return 0, io.EOF
	}

	w.convert(dst[:got])
	w.pos += int64(got / w.channels)
	return got, nil
}

// convert decodes w.buf's leading samples into dst per the file layout.
func (w *WAVDecoder) convert(dst []float32) {
	switch {
	case w.formatTag == wavFormatFloat:
		for i := range dst {
			bits := binary.LittleEndian.Uint32(w.buf[i*4:])
			dst[i] = math.Float32frombits(bits)
		}
	case w.bitDepth == 8:
		// 8-bit WAV is unsigned with a 128 midpoint
		for i := range dst {
			dst[i] = (float32(w.buf[i]) - 128) / 128
		}
	case w.bitDepth == 16:
		max := float32(goaudio.IntMaxSignedValue(16))
		for i := range dst {
			v := int16(binary.LittleEndian.Uint16(w.buf[i*2:]))
			dst[i] = float32(v) / max
		}
	case w.bitDepth == 24:
		max := float32(goaudio.IntMaxSignedValue(24))
		for i := range dst {
			v := int32(w.buf[i*3]) | int32(w.buf[i*3+1])<<8 | int32(w.buf[i*3+2])<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF
			}
			dst[i] = float32(v) / max
		}
	case w.bitDepth == 32:
		max := float32(goaudio.IntMaxSignedValue(32))
		for i := range dst {
			v := int32(binary.LittleEndian.Uint32(w.buf[i*4:]))
			dst[i] = float32(v) / max
		}
	}
}

// Seek repositions to the given frame.
func (w *WAVDecoder) Seek(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if frame > w.frames {
		frame = w.frames
	}
	if _, err := w.r.Seek(w.dataStart+frame*w.blockAlign, io.SeekStart); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	w.pos = frame
	return nil
}

// Close releases the underlying file.
func (w *WAVDecoder) Close() error {
	return closeBoth(nil, w.closer)
}
