// ABOUTME: Tests for the clip catalog: probing, classification, scanning
// ABOUTME: Builds real WAV fixtures on disk through the encode package
package library

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cartwall/cartwall-go/pkg/audio/encode"
)

func writeWAV(t *testing.T, path string, rate, channels, frames int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w, err := encode.NewWAVWriter(f, rate, channels)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	samples := make([]float32, frames*channels)
	for i := range samples {
		samples[i] = float32(i%50) / 100
	}
	if err := w.WriteSamples(samples); err != nil {
		t.Fatalf("write samples: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
}

func TestAddFileProbesMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sting.wav")
	writeWAV(t, path, 8000, 1, 1600)

	lib := New()
	clip, err := lib.AddFile(path)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if clip.ID() == "" {
		t.Error("expected a clip handle")
	}
	if clip.Name() != "sting.wav" {
		t.Errorf("expected name sting.wav, got %q", clip.Name())
	}
	if clip.Path() != path {
		t.Errorf("expected path %q, got %q", path, clip.Path())
	}
	if clip.SampleRate() != 8000 {
		t.Errorf("expected rate 8000, got %d", clip.SampleRate())
	}
	if clip.Channels() != 1 {
		t.Errorf("expected 1 channel, got %d", clip.Channels())
	}
	if clip.Frames() != 1600 {
		t.Errorf("expected 1600 frames, got %d", clip.Frames())
	}
	if clip.Duration() != 200*time.Millisecond {
		t.Errorf("expected 200ms, got %v", clip.Duration())
	}

	got, ok := lib.Get(clip.ID())
	if !ok || got != clip {
		t.Error("expected Get to return the registered clip")
	}
	if lib.Len() != 1 {
		t.Errorf("expected 1 clip, got %d", lib.Len())
	}
}

func TestAddFileClassifiesFailures(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("this is not audio data at all"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	lib := New()
	tests := []struct {
		name   string
		path   string
		reason string
	}{
		{"garbage container", garbage, "unrecognized audio format"},
		{"missing file", filepath.Join(dir, "nope.wav"), "file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.AddFile(tt.path)
			var probeErr *ProbeError
			if !errors.As(err, &probeErr) {
				t.Fatalf("expected ProbeError, got %v", err)
			}
			if probeErr.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, probeErr.Reason)
			}
		})
	}
	if lib.Len() != 0 {
		t.Errorf("expected refused files to stay out of the catalog, got %d", lib.Len())
	}
}

func TestAddBytesIndependentDecoders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mem.wav")
	writeWAV(t, path, 8000, 2, 400)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	lib := New()
	clip, err := lib.AddBytes("mem.wav", data, "wav")
	if err != nil {
		t.Fatalf("add bytes: %v", err)
	}
	if clip.Frames() != 400 {
		t.Errorf("expected 400 frames, got %d", clip.Frames())
	}
	if clip.Path() != "" {
		t.Errorf("expected no path for memory clip, got %q", clip.Path())
	}

	// Two opens never share position.
	d1, err := clip.OpenDecoder()
	if err != nil {
		t.Fatalf("open 1: %v", err)
	}
	defer d1.Close()
	d2, err := clip.OpenDecoder()
	if err != nil {
		t.Fatalf("open 2: %v", err)
	}
	defer d2.Close()

	buf := make([]float32, 100)
	if _, err := d1.ReadSamples(buf); err != nil && err != io.EOF {
		t.Fatalf("read 1: %v", err)
	}
	first := make([]float32, 16)
	n, err := d2.ReadSamples(first)
	if err != nil || n != 16 {
		t.Fatalf("expected fresh decoder to read from the top, got n=%d err=%v", n, err)
	}
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "b.wav"), 8000, 1, 80)
	writeWAV(t, filepath.Join(dir, "a.wav"), 8000, 1, 80)
	if err := os.WriteFile(filepath.Join(dir, "broken.wav"), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("cue sheet"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	lib := New()
	added, err := lib.ScanDir(dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("expected 2 clips added, got %d", len(added))
	}
	if lib.Len() != 2 {
		t.Errorf("expected 2 clips in catalog, got %d", lib.Len())
	}

	if _, err := lib.ScanDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected scan of a missing directory to fail")
	}
}

func TestByNameListAndRemove(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"bravo.wav", "alpha.wav", "charlie.wav"} {
		writeWAV(t, filepath.Join(dir, name), 8000, 1, 40)
	}

	lib := New()
	for _, name := range []string{"bravo.wav", "alpha.wav", "charlie.wav"} {
		if _, err := lib.AddFile(filepath.Join(dir, name)); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	// List preserves import order; ListSorted orders by name.
	list := lib.List()
	if list[0].Name() != "bravo.wav" {
		t.Errorf("expected import order, got %q first", list[0].Name())
	}
	sorted := lib.ListSorted()
	if sorted[0].Name() != "alpha.wav" || sorted[2].Name() != "charlie.wav" {
		t.Errorf("expected name order, got %q .. %q", sorted[0].Name(), sorted[2].Name())
	}

	clip, ok := lib.ByName("alpha.wav")
	if !ok {
		t.Fatal("expected ByName hit")
	}
	if _, ok := lib.ByName("delta.wav"); ok {
		t.Error("expected ByName miss for unknown clip")
	}

	if !lib.Remove(clip.ID()) {
		t.Error("expected remove to succeed")
	}
	if lib.Remove(clip.ID()) {
		t.Error("expected second remove to fail")
	}
	if _, ok := lib.Get(clip.ID()); ok {
		t.Error("expected removed clip gone")
	}
	if lib.Len() != 2 {
		t.Errorf("expected 2 clips left, got %d", lib.Len())
	}
}

func TestHandlesAreUnique(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dup.wav")
	writeWAV(t, path, 8000, 1, 40)

	lib := New()
	c1, err := lib.AddFile(path)
	if err != nil {
		t.Fatalf("add 1: %v", err)
	}
	c2, err := lib.AddFile(path)
	if err != nil {
		t.Fatalf("add 2: %v", err)
	}
	if c1.ID() == c2.ID() {
		t.Error("expected distinct handles for repeated adds")
	}
	if lib.Len() != 2 {
		t.Errorf("expected both registrations kept, got %d", lib.Len())
	}
}
