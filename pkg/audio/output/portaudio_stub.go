//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"

	"github.com/cartwall/cartwall-go/pkg/audio"
)

// PortAudio sink implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a PortAudio sink for the given stream format.
func NewPortAudio(format audio.Format) *PortAudio {
	return &PortAudio{}
}

// Start begins pulling audio.
func (p *PortAudio) Start(pull PullFunc) error {
	return fmt.Errorf("PortAudio support not enabled (build with -tags portaudio)")
}

// Close releases resources.
func (p *PortAudio) Close() error {
	return nil
}
