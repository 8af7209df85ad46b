// ABOUTME: Oto-based audio sink, the default on desktop platforms
// ABOUTME: Adapts the pull model to oto's io.Reader player with a small shim
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/cartwall/cartwall-go/pkg/audio"
)

// oto allows one context per process, so it is shared across sinks and
// suspended rather than destroyed on Close.
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
	otoCh   int
)

// Oto plays audio through the oto library.
type Oto struct {
	format audio.Format
	player *oto.Player
}

// NewOto creates an oto sink for the given stream format.
func NewOto(format audio.Format) *Oto {
	return &Oto{format: format}
}

// Start opens the shared oto context and begins pulling audio.
func (o *Oto) Start(pull PullFunc) error {
	if o.player != nil {
		return ErrAlreadyStarted
	}

	ctx, err := sharedOtoContext(o.format)
	if err != nil {
		return err
	}

	o.player = ctx.NewPlayer(&pullReader{
		pull:   pull,
		period: make([]float32, o.format.PeriodSamples()),
		buf:    make([]byte, o.format.PeriodSamples()*2),
	})
	o.player.Play()

	log.Printf("Audio output started: %dHz, %d channels (oto)", o.format.SampleRate, o.format.Channels)
	return nil
}

// Close stops playback. The shared context is suspended, not destroyed,
// because oto cannot be reinitialized within a process.
func (o *Oto) Close() error {
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil

	otoMu.Lock()
	if otoCtx != nil {
		otoCtx.Suspend()
	}
	otoMu.Unlock()
	return err
}

// sharedOtoContext returns the process-wide oto context, creating it on
// first use. A format change after creation is an error since oto keeps
// the first configuration for the life of the process.
func sharedOtoContext(format audio.Format) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != format.SampleRate || otoCh != format.Channels {
			return nil, fmt.Errorf("oto context already initialized at %dHz %dch, cannot switch to %dHz %dch",
				otoRate, otoCh, format.SampleRate, format.Channels)
		}
		otoCtx.Resume()
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	otoCtx = ctx
	otoRate = format.SampleRate
	otoCh = format.Channels
	return ctx, nil
}

// pullReader adapts a PullFunc to the io.Reader oto's player consumes.
// It pulls one period at a time and hands out s16le bytes. oto reads
// from a single goroutine, so no locking is needed.
type pullReader struct {
	pull    PullFunc
	period  []float32
	buf     []byte
	pending []byte
}

func (r *pullReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		r.pull(r.period)
		audio.EncodeInt16LE(r.buf, r.period)
		r.pending = r.buf
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
