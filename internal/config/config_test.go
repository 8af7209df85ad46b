// ABOUTME: Tests for the configuration loader, defaults, and validation
// ABOUTME: Configs are decoded from string literals and one real file
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestLoadFromReaderAppliesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("audio:\n  backend: none\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Audio.Backend != BackendNone {
		t.Errorf("expected explicit backend kept, got %q", cfg.Audio.Backend)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 2 {
		t.Errorf("expected default channels, got %d", cfg.Audio.Channels)
	}
	if cfg.Audio.PeriodFrames != 960 {
		t.Errorf("expected default period, got %d", cfg.Audio.PeriodFrames)
	}
	if cfg.Audio.RetryInterval() != 2*time.Second {
		t.Errorf("expected default retry interval, got %v", cfg.Audio.RetryInterval())
	}
	if cfg.Engine.MaxInstances != 32 || cfg.Engine.QueueDepth != 8 {
		t.Errorf("expected engine defaults, got %+v", cfg.Engine)
	}
	if cfg.Board.Columns != 4 {
		t.Errorf("expected default columns, got %d", cfg.Board.Columns)
	}
	if cfg.Remote.ListenAddr != ":8735" {
		t.Errorf("expected default listen addr, got %q", cfg.Remote.ListenAddr)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("volume_knob: 11\n"))
	if err == nil {
		t.Fatal("expected unknown fields to be rejected")
	}
}

func TestClipVolumeDefaultsToFullGain(t *testing.T) {
	yaml := `
library:
  clips:
    - path: a.wav
    - path: b.wav
      volume: 0.3
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Library.Clips[0].Volume; got != 1.0 {
		t.Errorf("expected unset volume to default to 1.0, got %v", got)
	}
	if got := cfg.Library.Clips[1].Volume; got != 0.3 {
		t.Errorf("expected explicit volume kept, got %v", got)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Audio.Backend = "speaker-wire"
	cfg.Audio.Channels = 7
	cfg.Library.Clips = []ClipConfig{
		{Path: "", Volume: 2.5},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation failures")
	}
	msg := err.Error()
	for _, want := range []string{
		"audio.backend",
		"audio.channels",
		"library.clips[0].path",
		"library.clips[0].volume",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %s, got: %v", want, msg)
		}
	}
}

func TestValidateRejectsDuplicateKeys(t *testing.T) {
	cfg := Default()
	cfg.Library.Clips = []ClipConfig{
		{Path: "a.wav", Volume: 1, Key: "1"},
		{Path: "b.wav", Volume: 1, Key: "1"},
	}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestValidateRejectsMultiRuneKey(t *testing.T) {
	cfg := Default()
	cfg.Library.Clips = []ClipConfig{
		{Path: "a.wav", Volume: 1, Key: "f1"},
	}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "single character") {
		t.Fatalf("expected single-character key error, got %v", err)
	}
}

func TestValidateWavfileNeedsOutput(t *testing.T) {
	cfg := Default()
	cfg.Audio.Backend = BackendWAVFile

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "output_file") {
		t.Fatalf("expected output_file error, got %v", err)
	}

	cfg.Audio.OutputFile = "mix.wav"
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected config to validate with output file, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	yaml := `
audio:
  backend: wavfile
  output_file: out.wav
  sample_rate: 44100
engine:
  max_instances: 8
library:
  dirs: [clips]
  clips:
    - path: clips/airhorn.wav
      volume: 0.8
      loop: true
      key: "1"
board:
  columns: 6
remote:
  enabled: true
  advertise: true
  name: studio-a
log:
  file: cartwall.log
`
	path := filepath.Join(t.TempDir(), "cartwall.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Audio.Backend != BackendWAVFile || cfg.Audio.SampleRate != 44100 {
		t.Errorf("expected file values, got %+v", cfg.Audio)
	}
	if cfg.Engine.MaxInstances != 8 {
		t.Errorf("expected max_instances 8, got %d", cfg.Engine.MaxInstances)
	}
	if len(cfg.Library.Clips) != 1 || cfg.Library.Clips[0].Key != "1" {
		t.Errorf("expected clip binding preserved, got %+v", cfg.Library.Clips)
	}
	if !cfg.Remote.Enabled || cfg.Remote.Name != "studio-a" {
		t.Errorf("expected remote settings, got %+v", cfg.Remote)
	}
	if cfg.Log.File != "cartwall.log" {
		t.Errorf("expected log file, got %q", cfg.Log.File)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected missing config file to fail")
	}
}
