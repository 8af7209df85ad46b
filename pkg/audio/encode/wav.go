// ABOUTME: Streaming WAV encoder used by offline rendering and the file sink
// ABOUTME: Patches the RIFF sizes on close so the length need not be known up front
package encode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cartwall/cartwall-go/pkg/audio"
)

const wavHeaderSize = 44

// WAVWriter encodes interleaved float32 samples to a 16-bit PCM WAV
// stream. The header is written with zero sizes up front and patched on
// Close, so the total length does not need to be known when writing
// starts.
type WAVWriter struct {
	w          io.WriteSeeker
	sampleRate int
	channels   int
	dataBytes  uint32
	buf        []byte
	closed     bool
}

// NewWAVWriter writes a 16-bit PCM WAV header to w and returns a writer
// for the sample data.
func NewWAVWriter(w io.WriteSeeker, sampleRate, channels int) (*WAVWriter, error) {
	if sampleRate <= 0 || channels < 1 || channels > 2 {
		return nil, fmt.Errorf("wav: unsupported stream layout: %dHz %dch", sampleRate, channels)
	}

	ww := &WAVWriter{w: w, sampleRate: sampleRate, channels: channels}
	if err := ww.writeHeader(); err != nil {
		return nil, err
	}
	return ww, nil
}

func (ww *WAVWriter) writeHeader() error {
	header := make([]byte, wavHeaderSize)

	byteRate := uint32(ww.sampleRate * ww.channels * 2)
	blockAlign := uint16(ww.channels * 2)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+ww.dataBytes)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], uint16(ww.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(ww.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], 16)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], ww.dataBytes)

	if _, err := ww.w.Write(header); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}
	return nil
}

// WriteSamples appends interleaved float32 samples as s16le data.
// Values outside [-1, 1] clamp.
func (ww *WAVWriter) WriteSamples(samples []float32) error {
	if ww.closed {
		return fmt.Errorf("wav: writer is closed")
	}

	need := len(samples) * 2
	if cap(ww.buf) < need {
		ww.buf = make([]byte, need)
	}
	ww.buf = ww.buf[:need]

	audio.EncodeInt16LE(ww.buf, samples)
	if _, err := ww.w.Write(ww.buf); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	ww.dataBytes += uint32(need)
	return nil
}

// Frames returns the number of frames written so far.
func (ww *WAVWriter) Frames() int64 {
	return int64(ww.dataBytes) / int64(2*ww.channels)
}

// Close rewrites the header with the final sizes. The underlying writer
// is left open for the caller.
func (ww *WAVWriter) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true

	if _, err := ww.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wav: patch sizes: %w", err)
	}
	return ww.writeHeader()
}
