//go:build portaudio

// ABOUTME: PortAudio sink implementation
// ABOUTME: Cross-platform audio output using PortAudio
package output

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/cartwall/cartwall-go/pkg/audio"
)

// PortAudio plays audio through the PortAudio library.
type PortAudio struct {
	format audio.Format
	stream *portaudio.Stream
	period []float32
}

// NewPortAudio creates a PortAudio sink for the given stream format.
func NewPortAudio(format audio.Format) *PortAudio {
	return &PortAudio{format: format}
}

// Start opens the default stream and begins pulling audio.
func (p *PortAudio) Start(pull PullFunc) error {
	if p.stream != nil {
		return ErrAlreadyStarted
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(0, p.format.Channels, float64(p.format.SampleRate), 0, func(out []int16) {
		if cap(p.period) < len(out) {
			p.period = make([]float32, len(out))
		}
		p.period = p.period[:len(out)]

		pull(p.period)
		for i, s := range p.period {
			out[i] = audio.SampleToInt16(s)
		}
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	return nil
}

// Close stops the stream and releases PortAudio.
func (p *PortAudio) Close() error {
	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		return err
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	p.stream = nil
	return portaudio.Terminate()
}
