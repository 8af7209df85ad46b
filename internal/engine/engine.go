// ABOUTME: Playback engine facade: commands in, mixed audio out
// ABOUTME: Owns the registry, the housekeeping loop, and the sink attachment
package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cartwall/cartwall-go/pkg/audio"
	"github.com/cartwall/cartwall-go/pkg/audio/decode"
	"github.com/cartwall/cartwall-go/pkg/audio/output"
)

// Source is a decodable audio asset. OpenDecoder is called once per
// trigger, so concurrent instances of the same source each read from
// their own decoder.
type Source interface {
	Name() string
	OpenDecoder() (decode.Decoder, error)
}

// Defaults applied by Config.withDefaults.
const (
	DefaultMaxInstances = 32
	DefaultQueueDepth   = 8
	DefaultReapInterval = 50 * time.Millisecond
)

// Config carries the engine's tunables. The zero value is usable; every
// field falls back to a sensible default.
type Config struct {
	Format       audio.Format
	MaxInstances int           // hard cap on concurrent instances
	QueueDepth   int           // decode-ahead depth per instance, in periods
	ReapInterval time.Duration // how often terminal instances are swept
}

func (c Config) withDefaults() Config {
	if c.Format.SampleRate == 0 || c.Format.Channels == 0 || c.Format.PeriodFrames == 0 {
		c.Format = audio.DefaultFormat()
	}
	if c.MaxInstances <= 0 {
		c.MaxInstances = DefaultMaxInstances
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = DefaultReapInterval
	}
	return c
}

// Engine mixes any number of concurrently triggered clips into one
// stream. Commands may arrive from any goroutine; the mix runs on the
// sink's pull thread and never waits on a command or a decoder.
type Engine struct {
	format audio.Format
	cfg    Config
	reg    *registry

	baseCtx context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup

	hkStop chan struct{}
	hkDone chan struct{}

	nextID atomic.Uint64

	sinkMu   sync.Mutex
	sink     output.Sink
	degraded bool
	lastDev  *DeviceError

	periods  atomic.Uint64
	starved  atomic.Uint64
	limited  atomic.Uint64
	triggers atomic.Uint64
	rejected atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// New creates an engine and starts its housekeeping loop. The engine
// produces audio only once a sink is attached (or Pull is driven
// directly, as the offline renderers do).
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		format:  cfg.Format,
		cfg:     cfg,
		reg:     newRegistry(cfg.MaxInstances),
		baseCtx: ctx,
		cancel:  cancel,
		hkStop:  make(chan struct{}),
		hkDone:  make(chan struct{}),
	}

	go e.housekeeping()
	return e
}

// Format reports the device format the engine mixes into.
func (e *Engine) Format() audio.Format {
	return e.format
}

// Trigger starts a new playback instance of src at the given volume.
// It returns the instance handle immediately; decoding begins in the
// background and the instance reports Failed through Snapshot if the
// source cannot be decoded. Triggering never interrupts instances
// already playing.
func (e *Engine) Trigger(src Source, volume float64, loop bool) (uint64, error) {
	e.triggers.Add(1)

	ctx, cancel := context.WithCancel(e.baseCtx)
	in := &instance{
		id:      e.nextID.Add(1),
		name:    src.Name(),
		source:  src,
		created: time.Now(),
		frames:  make(chan block, e.cfg.QueueDepth),
		seekCh:  make(chan seekReq, 1),
		cancel:  cancel,
	}
	in.length.Store(-1)
	in.setVolume(clampVolume(volume))
	in.loop.Store(loop)

	reaped, err := e.reg.insert(in)
	for _, dead := range reaped {
		dead.cancel()
	}
	if err != nil {
		cancel()
		e.rejected.Add(1)
		return 0, err
	}

	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		in.run(ctx, e.format)
	}()

	return in.id, nil
}

// live resolves id to a non-terminal instance. Terminal instances are
// indistinguishable from reaped ones, so both report unknown.
func (e *Engine) live(id uint64) (*instance, error) {
	in := e.reg.get(id)
	if in == nil || in.getState().Terminal() {
		return nil, &UnknownInstanceError{ID: id}
	}
	return in, nil
}

// Stop halts one instance from any non-terminal state.
func (e *Engine) Stop(id uint64) error {
	in, err := e.live(id)
	if err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if !transition(in, StateStopped, func(s State) bool { return !s.Terminal() }) {
		return &UnknownInstanceError{ID: id}
	}
	return nil
}

// StopAll halts every non-terminal instance and reports how many it hit.
func (e *Engine) StopAll() int {
	stopped := 0
	for _, in := range e.reg.all() {
		in.mu.Lock()
		if transition(in, StateStopped, func(s State) bool { return !s.Terminal() }) {
			stopped++
		}
		in.mu.Unlock()
	}
	return stopped
}

// Pause freezes a playing instance at its current position. Pausing an
// already paused instance is a no-op; a pending instance pauses before
// its first sample.
func (e *Engine) Pause(id uint64) error {
	in, err := e.live(id)
	if err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if transition(in, StatePaused, func(s State) bool { return s == StatePlaying || s == StatePending }) {
		return nil
	}
	if in.getState().Terminal() {
		return &UnknownInstanceError{ID: id}
	}
	return nil
}

// Resume continues a paused instance. Resuming a playing instance is a
// no-op.
func (e *Engine) Resume(id uint64) error {
	in, err := e.live(id)
	if err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if transition(in, StatePlaying, func(s State) bool { return s == StatePaused }) {
		return nil
	}
	if in.getState().Terminal() {
		return &UnknownInstanceError{ID: id}
	}
	return nil
}

// PauseAll pauses every playing or pending instance.
func (e *Engine) PauseAll() int {
	paused := 0
	for _, in := range e.reg.all() {
		in.mu.Lock()
		if transition(in, StatePaused, func(s State) bool { return s == StatePlaying || s == StatePending }) {
			paused++
		}
		in.mu.Unlock()
	}
	return paused
}

// ResumeAll resumes every paused instance.
func (e *Engine) ResumeAll() int {
	resumed := 0
	for _, in := range e.reg.all() {
		in.mu.Lock()
		if transition(in, StatePlaying, func(s State) bool { return s == StatePaused }) {
			resumed++
		}
		in.mu.Unlock()
	}
	return resumed
}

// SetVolume adjusts one instance's gain. Takes effect within one
// period, ramped to avoid clicks.
func (e *Engine) SetVolume(id uint64, volume float64) error {
	in, err := e.live(id)
	if err != nil {
		return err
	}

	in.mu.Lock()
	in.setVolume(clampVolume(volume))
	in.mu.Unlock()
	return nil
}

// Mute silences or unsilences one instance without touching its volume.
func (e *Engine) Mute(id uint64, muted bool) error {
	in, err := e.live(id)
	if err != nil {
		return err
	}

	in.mu.Lock()
	in.muted.Store(muted)
	in.mu.Unlock()
	return nil
}

// SetLoop toggles looping. Turning looping off lets the current pass
// run to its natural end; turning it on makes the next end wrap.
func (e *Engine) SetLoop(id uint64, loop bool) error {
	in, err := e.live(id)
	if err != nil {
		return err
	}

	in.mu.Lock()
	in.loop.Store(loop)
	in.mu.Unlock()
	return nil
}

// Seek repositions an instance to the given frame in its native rate.
// Audio queued from before the seek never reaches the mix. Works in
// any non-terminal state, including after the stream has drained but
// before the final queued samples play out.
func (e *Engine) Seek(id uint64, frame int64) error {
	in, err := e.live(id)
	if err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if frame < 0 {
		frame = 0
	}
	if l := in.length.Load(); l >= 0 && frame > l {
		frame = l
	}

	gen := in.gen.Add(1)
	in.pos.Store(frame)

	// Replace any seek the worker has not picked up yet.
	select {
	case <-in.seekCh:
	default:
	}
	in.seekCh <- seekReq{gen: gen, frame: frame}
	return nil
}

func clampVolume(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// InstanceStatus is one instance's row in a snapshot.
type InstanceStatus struct {
	ID         uint64
	Clip       string
	State      State
	Position   int64 // native frames
	Length     int64 // native frames, -1 when unknown
	SampleRate int
	Volume     float64
	Muted      bool
	Loop       bool
	Failure    string // decode failure reason, empty otherwise
	Created    time.Time
}

// Snapshot reports every registered instance in trigger order. Each
// row is internally consistent; rows are read without stopping the
// mix, so a snapshot taken mid-pull may be one period apart across
// instances.
func (e *Engine) Snapshot() []InstanceStatus {
	list := e.reg.all()
	out := make([]InstanceStatus, 0, len(list))
	for _, in := range list {
		st := InstanceStatus{
			ID:         in.id,
			Clip:       in.name,
			State:      in.getState(),
			Position:   in.pos.Load(),
			Length:     in.length.Load(),
			SampleRate: int(in.rate.Load()),
			Volume:     in.getVolume(),
			Muted:      in.muted.Load(),
			Loop:       in.loop.Load(),
			Created:    in.created,
		}
		if f := in.failure.Load(); f != nil {
			st.Failure = f.Reason
		}
		out = append(out, st)
	}
	return out
}

// Stats is a point-in-time view of the engine's counters.
type Stats struct {
	Periods  uint64 // pulls served
	Starved  uint64 // instance pulls that ran dry
	Limited  uint64 // pulls where the limiter engaged
	Triggers uint64
	Rejected uint64 // triggers refused at capacity
	Active   int
	Degraded bool
}

func (e *Engine) Stats() Stats {
	e.sinkMu.Lock()
	degraded := e.degraded
	e.sinkMu.Unlock()

	return Stats{
		Periods:  e.periods.Load(),
		Starved:  e.starved.Load(),
		Limited:  e.limited.Load(),
		Triggers: e.triggers.Load(),
		Rejected: e.rejected.Load(),
		Active:   e.reg.count(),
		Degraded: degraded,
	}
}

// AttachSink hands the engine's pull to an output device and leaves
// degraded mode.
func (e *Engine) AttachSink(s output.Sink) error {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()

	if e.sink != nil {
		return fmt.Errorf("a sink is already attached")
	}
	if err := s.Start(e.Pull); err != nil {
		return fmt.Errorf("starting sink: %w", err)
	}

	if e.degraded {
		log.Printf("Audio device restored, leaving degraded mode")
	}
	e.sink = s
	e.degraded = false
	e.lastDev = nil
	return nil
}

// DetachSink stops and closes the attached sink, if any. Instances
// keep their state; playback continues when a sink is reattached.
func (e *Engine) DetachSink() error {
	e.sinkMu.Lock()
	s := e.sink
	e.sink = nil
	e.sinkMu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}

// ReportDeviceError records a device failure and enters degraded mode:
// the sink is torn down, instance state is preserved, and commands
// keep working against the silent engine.
func (e *Engine) ReportDeviceError(err error) {
	devErr := &DeviceError{Err: err}

	e.sinkMu.Lock()
	s := e.sink
	e.sink = nil
	e.degraded = true
	e.lastDev = devErr
	e.sinkMu.Unlock()

	log.Printf("Audio device lost, entering degraded mode: %v", err)
	if s != nil {
		// Sinks report errors from their own device thread; closing
		// from here would join that thread against itself.
		go s.Close()
	}
}

// Degraded reports whether the engine is running without a device.
func (e *Engine) Degraded() bool {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	return e.degraded
}

// LastDeviceError returns the failure that caused degraded mode, or
// nil when a device is attached.
func (e *Engine) LastDeviceError() *DeviceError {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	return e.lastDev
}

// housekeeping periodically reclaims terminal instances so their
// workers and queues are released without any caller having to ask.
func (e *Engine) housekeeping() {
	defer close(e.hkDone)

	ticker := time.NewTicker(e.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.hkStop:
			return
		case <-ticker.C:
			e.reapNow()
		}
	}
}

// reapNow sweeps terminal instances out of the registry and cancels
// their workers.
func (e *Engine) reapNow() int {
	dead := e.reg.reap()
	for _, in := range dead {
		in.cancel()
	}
	return len(dead)
}

// Close stops housekeeping, detaches the sink, cancels every worker,
// and waits for them to exit.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.hkStop)
		<-e.hkDone

		e.closeErr = e.DetachSink()

		for _, in := range e.reg.drain() {
			in.cancel()
		}
		e.cancel()
		e.workers.Wait()
	})
	return e.closeErr
}
