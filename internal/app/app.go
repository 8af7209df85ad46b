// ABOUTME: Main board application orchestration
// ABOUTME: Wires config, library, engine, sink, gateway, and TUI together
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cartwall/cartwall-go/internal/config"
	"github.com/cartwall/cartwall-go/internal/engine"
	"github.com/cartwall/cartwall-go/internal/library"
	"github.com/cartwall/cartwall-go/internal/remote"
	"github.com/cartwall/cartwall-go/internal/ui"
	"github.com/cartwall/cartwall-go/internal/version"
	"github.com/cartwall/cartwall-go/pkg/audio"
	"github.com/cartwall/cartwall-go/pkg/audio/output"
)

// snapshotInterval is how often the board is repainted from the engine.
const snapshotInterval = 100 * time.Millisecond

// defaultKeys are handed to pads without an explicit binding, keyboard
// row by keyboard row. The board's control keys are left out.
var defaultKeys = []string{
	"1", "2", "3", "4", "5", "6", "7", "8", "9", "0",
	"a", "s", "d", "f", "g", "h", "j", "k", "l",
	"z", "x", "c", "v", "b", "n", "m",
}

// App represents the board application
type App struct {
	cfg      *config.Config
	headless bool

	lib     *library.Library
	eng     *engine.Engine
	gateway *remote.Gateway
	board   *ui.Board
	pads    []ui.Pad

	logFile *os.File
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates the application for the given configuration
func New(cfg *config.Config, headless bool) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		cfg:      cfg,
		headless: headless,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run builds every component and blocks until the board quits, Stop is
// called, or a component fails.
func (a *App) Run() error {
	if err := a.setup(); err != nil {
		return err
	}
	defer a.teardown()

	g, ctx := errgroup.WithContext(a.ctx)

	if a.gateway != nil {
		g.Go(func() error {
			if err := a.gateway.Start(); err != nil {
				return fmt.Errorf("gateway: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			a.gateway.Stop()
			return nil
		})
	}

	g.Go(func() error {
		a.retryDevice(ctx)
		return nil
	})

	if a.headless {
		log.Printf("Running headless, send SIGINT to exit")
	} else {
		g.Go(func() error {
			a.runBoard(ctx)
			return nil
		})
	}

	return g.Wait()
}

// Stop shuts the application down from outside, typically on a signal.
func (a *App) Stop() {
	a.cancel()
	if a.board != nil {
		a.board.Quit()
	}
}

// setup builds the library, engine, sink, gateway, and board.
func (a *App) setup() error {
	if err := a.setupLog(); err != nil {
		return err
	}

	log.Printf("%s %s starting", version.Product, version.Version)

	a.lib = library.New()
	a.pads = a.loadLibrary()
	if a.lib.Len() == 0 {
		log.Printf("No clips loaded, the board is empty")
	}

	a.eng = engine.New(engine.Config{
		Format: audio.Format{
			SampleRate:   a.cfg.Audio.SampleRate,
			Channels:     a.cfg.Audio.Channels,
			PeriodFrames: a.cfg.Audio.PeriodFrames,
		},
		MaxInstances: a.cfg.Engine.MaxInstances,
		QueueDepth:   a.cfg.Engine.QueueDepth,
	})

	if err := a.attachSink(); err != nil {
		// The engine keeps accepting commands without a device. The
		// retry loop brings the sink up once the device is back.
		a.eng.ReportDeviceError(err)
	}

	if a.cfg.Remote.Enabled {
		gw, err := remote.New(a.eng, a.lib, remote.Config{
			ListenAddr: a.cfg.Remote.ListenAddr,
			Name:       a.cfg.Remote.Name,
			Advertise:  a.cfg.Remote.Advertise,
		})
		if err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
		a.gateway = gw
	}

	if !a.headless {
		a.board = ui.NewBoard(a.pads, a.cfg.Board.Columns)
	}

	return nil
}

// setupLog routes the standard logger. The TUI owns the terminal, so
// interactive runs log to a file only.
func (a *App) setupLog() error {
	path := a.cfg.Log.File
	if path == "" {
		if a.headless {
			return nil // stderr is fine when nothing draws over it
		}
		path = "cartwall.log"
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file %q: %w", path, err)
	}
	a.logFile = f

	if a.headless {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		log.SetOutput(f)
	}
	return nil
}

// loadLibrary registers configured clips and scans directories, and
// returns the board pads in config order.
func (a *App) loadLibrary() []ui.Pad {
	var pads []ui.Pad

	for _, cc := range a.cfg.Library.Clips {
		clip, err := a.lib.AddFile(cc.Path)
		if err != nil {
			log.Printf("Skipping %s: %v", cc.Path, err)
			continue
		}
		vol := cc.Volume
		if vol == 0 {
			vol = 1.0
		}
		pads = append(pads, ui.Pad{
			Index:  len(pads),
			Key:    cc.Key,
			Name:   clip.Name(),
			ClipID: clip.ID(),
			Volume: vol,
			Loop:   cc.Loop,
		})
	}

	for _, dir := range a.cfg.Library.Dirs {
		clips, err := a.lib.ScanDir(dir)
		if err != nil {
			log.Printf("Skipping directory %s: %v", dir, err)
			continue
		}
		log.Printf("Scanned %s: %d clips", dir, len(clips))
		for _, clip := range clips {
			pads = append(pads, ui.Pad{
				Index:  len(pads),
				Name:   clip.Name(),
				ClipID: clip.ID(),
				Volume: 1.0,
			})
		}
	}

	assignKeys(pads)
	return pads
}

// assignKeys hands free default bindings to pads that have none.
func assignKeys(pads []ui.Pad) {
	used := make(map[string]bool)
	for _, p := range pads {
		if p.Key != "" {
			used[p.Key] = true
		}
	}

	next := 0
	for i := range pads {
		if pads[i].Key != "" {
			continue
		}
		for next < len(defaultKeys) && used[defaultKeys[next]] {
			next++
		}
		if next >= len(defaultKeys) {
			return // more pads than keys; the rest stay remote-only
		}
		pads[i].Key = defaultKeys[next]
		used[defaultKeys[next]] = true
	}
}

// attachSink builds the configured sink and hands it the engine pull.
func (a *App) attachSink() error {
	sink, err := a.buildSink()
	if err != nil {
		return err
	}
	if sink == nil {
		return nil
	}
	if err := a.eng.AttachSink(sink); err != nil {
		return err
	}

	f := a.eng.Format()
	log.Printf("Audio output: %s, %d Hz, %d ch, %d-frame periods",
		a.cfg.Audio.Backend, f.SampleRate, f.Channels, f.PeriodFrames)
	return nil
}

// buildSink constructs the configured backend. A nil sink means the
// engine runs without output on purpose.
func (a *App) buildSink() (output.Sink, error) {
	format := a.eng.Format()

	switch a.cfg.Audio.Backend {
	case config.BackendOto:
		return output.NewOto(format), nil
	case config.BackendMalgo:
		return output.NewMalgo(format, a.eng.ReportDeviceError), nil
	case config.BackendPortAudio:
		return output.NewPortAudio(format), nil
	case config.BackendWAVFile:
		return output.NewWAVFile(a.cfg.Audio.OutputFile, format), nil
	case config.BackendNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", a.cfg.Audio.Backend)
}

// retryDevice reattaches the sink while the engine runs degraded.
func (a *App) retryDevice(ctx context.Context) {
	interval := a.cfg.Audio.RetryInterval()
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !a.eng.Degraded() {
				continue
			}
			if err := a.attachSink(); err != nil {
				log.Printf("Device retry failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// runBoard drives the TUI until the user quits or ctx is cancelled.
func (a *App) runBoard(ctx context.Context) {
	pollDone := make(chan struct{})
	go a.pollBoard(ctx, pollDone)
	go a.runCommands(ctx)

	go func() {
		select {
		case <-a.board.QuitChan():
			// Wind the gateway down while the alt screen restores.
			a.cancel()
		case <-ctx.Done():
			a.board.Quit()
		}
	}()

	if err := a.board.Start(); err != nil {
		log.Printf("Board error: %v", err)
	}

	a.cancel()
	<-pollDone // Stop closes the update channel; the poller must be done
	a.board.Stop()
}

// pollBoard pushes engine snapshots to the board at UI cadence.
func (a *App) pollBoard(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.board.Update(ui.BoardMsg{
				Instances: a.eng.Snapshot(),
				Stats:     a.eng.Stats(),
			})
		case <-ctx.Done():
			return
		}
	}
}

// runCommands executes key-driven board actions against the engine.
func (a *App) runCommands(ctx context.Context) {
	for {
		select {
		case cmd := <-a.board.Commands():
			a.dispatch(cmd)
		case <-ctx.Done():
			return
		}
	}
}

// dispatch maps one board command onto the engine API.
func (a *App) dispatch(cmd ui.Command) {
	switch cmd.Kind {
	case ui.CmdTrigger:
		clip, ok := a.lib.Get(cmd.Pad.ClipID)
		if !ok {
			log.Printf("Pad %d points at an unknown clip", cmd.Pad.Index)
			return
		}
		if _, err := a.eng.Trigger(clip, cmd.Pad.Volume, cmd.Pad.Loop); err != nil {
			log.Printf("Trigger %s: %v", clip.Name(), err)
		}
	case ui.CmdStopAll:
		a.eng.StopAll()
	case ui.CmdPauseAll:
		a.eng.PauseAll()
	case ui.CmdResumeAll:
		a.eng.ResumeAll()
	}
}

// teardown releases the engine and the log file.
func (a *App) teardown() {
	if a.eng != nil {
		if err := a.eng.Close(); err != nil {
			log.Printf("Engine close: %v", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
