// ABOUTME: File sink that paces pulls against a wall-clock ticker
// ABOUTME: Useful for headless monitoring and soak tests without a sound device
package output

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cartwall/cartwall-go/pkg/audio"
	"github.com/cartwall/cartwall-go/pkg/audio/encode"
)

// WAVFile pulls one period per tick of a wall-clock timer and appends
// it to a WAV file. It stands in for a sound device where none exists.
type WAVFile struct {
	format audio.Format
	path   string

	f    *os.File
	w    *encode.WAVWriter
	stop chan struct{}
	done chan struct{}
}

// NewWAVFile creates a file sink writing to path.
func NewWAVFile(path string, format audio.Format) *WAVFile {
	return &WAVFile{format: format, path: path}
}

// Start creates the file and begins the pump goroutine.
func (s *WAVFile) Start(pull PullFunc) error {
	if s.f != nil {
		return ErrAlreadyStarted
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	w, err := encode.NewWAVWriter(f, s.format.SampleRate, s.format.Channels)
	if err != nil {
		f.Close()
		return err
	}

	s.f = f
	s.w = w
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.pump(pull)

	log.Printf("Audio output started: %dHz, %d channels (file %s)", s.format.SampleRate, s.format.Channels, s.path)
	return nil
}

func (s *WAVFile) pump(pull PullFunc) {
	defer close(s.done)

	period := make([]float32, s.format.PeriodSamples())
	ticker := time.NewTicker(s.format.PeriodDuration())
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			pull(period)
			if err := s.w.WriteSamples(period); err != nil {
				log.Printf("File sink write error: %v", err)
				return
			}
		}
	}
}

// Close stops the pump and finalizes the file.
func (s *WAVFile) Close() error {
	if s.f == nil {
		return nil
	}
	close(s.stop)
	<-s.done

	err := s.w.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f = nil
	s.w = nil
	return err
}
