// ABOUTME: Configuration schema, defaults, and YAML loader for the board
// ABOUTME: Initial volumes, loop flags, and key bindings live here, not in the engine
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selects the audio output sink.
type Backend string

const (
	BackendOto       Backend = "oto"
	BackendMalgo     Backend = "malgo"
	BackendPortAudio Backend = "portaudio"
	BackendWAVFile   Backend = "wavfile"

	// BackendNone runs the engine with no sink attached: commands and
	// snapshots work, nothing is consumed. Useful for dry runs.
	BackendNone Backend = "none"
)

// IsValid reports whether b is a recognised backend.
func (b Backend) IsValid() bool {
	switch b {
	case BackendOto, BackendMalgo, BackendPortAudio, BackendWAVFile, BackendNone:
		return true
	}
	return false
}

// Config is the root configuration, typically loaded from a YAML file
// with [Load].
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Engine  EngineConfig  `yaml:"engine"`
	Library LibraryConfig `yaml:"library"`
	Board   BoardConfig   `yaml:"board"`
	Remote  RemoteConfig  `yaml:"remote"`
	Log     LogConfig     `yaml:"log"`
}

// AudioConfig holds the device format and backend selection.
type AudioConfig struct {
	Backend Backend `yaml:"backend"`

	SampleRate   int `yaml:"sample_rate"`
	Channels     int `yaml:"channels"`
	PeriodFrames int `yaml:"period_frames"`

	// OutputFile is where the wavfile backend writes the mix.
	OutputFile string `yaml:"output_file"`

	// RetrySeconds is how often the app retries the device while the
	// engine runs degraded.
	RetrySeconds int `yaml:"retry_seconds"`
}

// RetryInterval returns the device retry cadence as a duration.
func (a AudioConfig) RetryInterval() time.Duration {
	return time.Duration(a.RetrySeconds) * time.Second
}

// EngineConfig holds the playback engine tunables.
type EngineConfig struct {
	// MaxInstances caps concurrently registered playback instances.
	MaxInstances int `yaml:"max_instances"`

	// QueueDepth is the per-instance decode-ahead depth in periods.
	QueueDepth int `yaml:"queue_depth"`
}

// LibraryConfig declares where clips come from.
type LibraryConfig struct {
	// Dirs are scanned non-recursively for decodable files.
	Dirs []string `yaml:"dirs"`

	// Clips are individual assets with per-pad settings.
	Clips []ClipConfig `yaml:"clips"`
}

// ClipConfig is one pad assignment: an asset plus the initial playback
// values the engine receives at trigger time.
type ClipConfig struct {
	Path   string  `yaml:"path"`
	Volume float64 `yaml:"volume"`
	Loop   bool    `yaml:"loop"`

	// Key binds the pad to a board hotkey (single character).
	Key string `yaml:"key"`
}

// BoardConfig controls the TUI layout.
type BoardConfig struct {
	Columns int `yaml:"columns"`
}

// RemoteConfig controls the WebSocket gateway.
type RemoteConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`

	// Advertise announces the gateway over mDNS as _cartwall._tcp.
	Advertise bool   `yaml:"advertise"`
	Name      string `yaml:"name"`
}

// LogConfig controls log output.
type LogConfig struct {
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:      BackendOto,
			SampleRate:   48000,
			Channels:     2,
			PeriodFrames: 960,
			RetrySeconds: 2,
		},
		Engine: EngineConfig{
			MaxInstances: 32,
			QueueDepth:   8,
		},
		Board: BoardConfig{
			Columns: 4,
		},
		Remote: RemoteConfig{
			ListenAddr: ":8735",
			Name:       "cartwall",
		},
	}
}

// Load reads the YAML configuration file at path and returns a
// validated Config with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields from [Default]. Explicit
// values, including Backend "none", survive.
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Audio.Backend == "" {
		cfg.Audio.Backend = def.Audio.Backend
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = def.Audio.SampleRate
	}
	if cfg.Audio.Channels == 0 {
		cfg.Audio.Channels = def.Audio.Channels
	}
	if cfg.Audio.PeriodFrames == 0 {
		cfg.Audio.PeriodFrames = def.Audio.PeriodFrames
	}
	if cfg.Audio.RetrySeconds == 0 {
		cfg.Audio.RetrySeconds = def.Audio.RetrySeconds
	}
	if cfg.Engine.MaxInstances == 0 {
		cfg.Engine.MaxInstances = def.Engine.MaxInstances
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = def.Engine.QueueDepth
	}
	if cfg.Board.Columns == 0 {
		cfg.Board.Columns = def.Board.Columns
	}
	if cfg.Remote.ListenAddr == "" {
		cfg.Remote.ListenAddr = def.Remote.ListenAddr
	}
	if cfg.Remote.Name == "" {
		cfg.Remote.Name = def.Remote.Name
	}

	// Unset clip volumes mean full gain, not silence.
	for i := range cfg.Library.Clips {
		if cfg.Library.Clips[i].Volume == 0 {
			cfg.Library.Clips[i].Volume = 1.0
		}
	}
}

// Validate checks that cfg holds a coherent set of values. It returns
// a joined error listing every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Audio.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("audio.backend %q is invalid; valid values: oto, malgo, portaudio, wavfile, none", cfg.Audio.Backend))
	}
	if cfg.Audio.Backend == BackendWAVFile && cfg.Audio.OutputFile == "" {
		errs = append(errs, errors.New("audio.output_file is required when audio.backend is wavfile"))
	}
	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is out of range [8000, 192000]", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels < 1 || cfg.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d is out of range [1, 2]", cfg.Audio.Channels))
	}
	if cfg.Audio.PeriodFrames < 64 || cfg.Audio.PeriodFrames > 16384 {
		errs = append(errs, fmt.Errorf("audio.period_frames %d is out of range [64, 16384]", cfg.Audio.PeriodFrames))
	}
	if cfg.Audio.RetrySeconds < 0 {
		errs = append(errs, fmt.Errorf("audio.retry_seconds %d must not be negative", cfg.Audio.RetrySeconds))
	}

	if cfg.Engine.MaxInstances < 1 {
		errs = append(errs, fmt.Errorf("engine.max_instances %d must be at least 1", cfg.Engine.MaxInstances))
	}
	if cfg.Engine.QueueDepth < 1 {
		errs = append(errs, fmt.Errorf("engine.queue_depth %d must be at least 1", cfg.Engine.QueueDepth))
	}

	if cfg.Board.Columns < 1 {
		errs = append(errs, fmt.Errorf("board.columns %d must be at least 1", cfg.Board.Columns))
	}

	keysSeen := make(map[string]int, len(cfg.Library.Clips))
	for i, clip := range cfg.Library.Clips {
		prefix := fmt.Sprintf("library.clips[%d]", i)
		if clip.Path == "" {
			errs = append(errs, fmt.Errorf("%s.path is required", prefix))
		}
		if clip.Volume < 0 || clip.Volume > 1 {
			errs = append(errs, fmt.Errorf("%s.volume %.2f is out of range [0, 1]", prefix, clip.Volume))
		}
		if clip.Key != "" {
			if len([]rune(clip.Key)) != 1 {
				errs = append(errs, fmt.Errorf("%s.key %q must be a single character", prefix, clip.Key))
			}
			if prev, ok := keysSeen[clip.Key]; ok {
				errs = append(errs, fmt.Errorf("%s.key %q is a duplicate of library.clips[%d]", prefix, clip.Key, prev))
			}
			keysSeen[clip.Key] = i
		}
	}

	if cfg.Remote.Enabled && cfg.Remote.ListenAddr == "" {
		errs = append(errs, errors.New("remote.listen_addr is required when remote.enabled is true"))
	}
	if cfg.Remote.Advertise && !cfg.Remote.Enabled {
		log.Printf("Config: remote.advertise set without remote.enabled; nothing will be advertised")
	}

	return errors.Join(errs...)
}
