// ABOUTME: Malgo-based audio sink using miniaudio
// ABOUTME: Pulls straight from the device callback and reports device loss
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/cartwall/cartwall-go/pkg/audio"
)

// Malgo plays audio through miniaudio. Unlike the oto sink it surfaces
// device loss: when the device stops outside of Close, the onError
// callback fires with ErrDeviceStopped.
type Malgo struct {
	format  audio.Format
	onError func(error)

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	closing atomic.Bool

	period []float32
}

// NewMalgo creates a malgo sink for the given stream format. onError
// may be nil; it is called from the device thread when the device
// stops unexpectedly.
func NewMalgo(format audio.Format, onError func(error)) *Malgo {
	return &Malgo{format: format, onError: onError}
}

// Start opens the default playback device and begins pulling audio.
func (m *Malgo) Start(pull PullFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return ErrAlreadyStarted
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(m.format.Channels)
	deviceConfig.SampleRate = uint32(m.format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.format.PeriodFrames)
	deviceConfig.Alsa.NoMMap = 1

	m.period = make([]float32, m.format.PeriodSamples())

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		samples := int(frameCount) * m.format.Channels
		if cap(m.period) < samples {
			m.period = make([]float32, samples)
		}
		m.period = m.period[:samples]

		pull(m.period)
		audio.EncodeInt16LE(pOutput[:samples*2], m.period)
	}

	m.closing.Store(false)
	onStop := func() {
		if m.closing.Load() {
			return
		}
		log.Printf("Playback device stopped outside of Close")
		if m.onError != nil {
			m.onError(ErrDeviceStopped)
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
		Stop: onStop,
	})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.ctx = ctx
	m.device = device

	log.Printf("Audio output started: %dHz, %d channels (malgo)", m.format.SampleRate, m.format.Channels)
	return nil
}

// Close stops the device and releases the context.
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}
	m.closing.Store(true)

	if err := m.device.Stop(); err != nil {
		log.Printf("Warning: device stop error: %v", err)
	}
	m.device.Uninit()
	m.device = nil

	if err := m.ctx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	m.ctx.Free()
	m.ctx = nil
	return nil
}
