// ABOUTME: Tests for the gateway client library
// ABOUTME: Exercises handshake, commands, and board tracking against a live gateway
package cartwall

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cartwall/cartwall-go/internal/engine"
	"github.com/cartwall/cartwall-go/internal/library"
	"github.com/cartwall/cartwall-go/internal/remote"
	"github.com/cartwall/cartwall-go/pkg/audio"
	"github.com/cartwall/cartwall-go/pkg/audio/encode"
)

func TestNewClientDefaults(t *testing.T) {
	client := New(Config{ServerAddr: "localhost:8735"})

	if client.config.ClientID == "" {
		t.Error("expected a generated client id")
	}
	if client.config.Name != "cartwall-pad" {
		t.Errorf("expected default name cartwall-pad, got %s", client.config.Name)
	}

	named := New(Config{ServerAddr: "localhost:8735", ClientID: "pad-7", Name: "Booth"})
	if named.config.ClientID != "pad-7" {
		t.Errorf("expected client id pad-7, got %s", named.config.ClientID)
	}
	if named.config.Name != "Booth" {
		t.Errorf("expected name Booth, got %s", named.config.Name)
	}
}

func TestClientNotConnected(t *testing.T) {
	client := New(Config{ServerAddr: "localhost:8735"})

	if err := client.Trigger("chime.wav"); err == nil {
		t.Error("expected error when not connected")
	}
	if err := client.StopAll(); err == nil {
		t.Error("expected error when not connected")
	}
}

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
	if err := w.WriteSamples(samples); err != nil {
		t.Fatalf("write samples: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
}

// startGateway brings up an engine, a one-clip library, and a gateway
// for end-to-end client tests.
func startGateway(t *testing.T, port int) {
	t.Helper()

	eng := engine.New(engine.Config{
		Format:       audio.Format{SampleRate: 8000, Channels: 1, PeriodFrames: 32},
		ReapInterval: time.Hour,
	})
	t.Cleanup(func() { eng.Close() })

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]float32, eng.Format().PeriodSamples())
		for {
			select {
			case <-stop:
				return
			default:
				eng.Pull(buf)
				time.Sleep(time.Millisecond)
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
	})

	path := filepath.Join(t.TempDir(), "chime.wav")
	writeWAV(t, path, 8000, 1, 160000)

	lib := library.New()
	if _, err := lib.AddFile(path); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}

	gw, err := remote.New(eng, lib, remote.Config{
		ListenAddr: fmt.Sprintf("127.0.0.1:%d", port),
		Name:       "Test Gateway",
	})
	if err != nil {
		t.Fatalf("failed to create gateway: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- gw.Start()
	}()

	time.Sleep(200 * time.Millisecond)

	t.Cleanup(func() {
		gw.Stop()
		select {
		case err := <-errChan:
			if err != nil {
				t.Errorf("gateway error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("gateway did not stop within timeout")
		}
	})
}

func waitBoard(t *testing.T, boards <-chan Board, pred func(Board) bool) Board {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case b := <-boards:
			if pred(b) {
				return b
			}
		case <-deadline:
			t.Fatal("board condition not met within timeout")
		}
	}
}

func findInstance(b Board, id uint64) *Instance {
	for i := range b.Instances {
		if b.Instances[i].ID == id {
			return &b.Instances[i]
		}
	}
	return nil
}

func TestClientGatewayRoundTrip(t *testing.T) {
	startGateway(t, 8751)

	boards := make(chan Board, 64)
	client := New(Config{
		ServerAddr: "127.0.0.1:8751",
		Name:       "Test Pad",
		OnBoard: func(b Board) {
			select {
			case boards <- b:
			default:
			}
		},
	})

	if err := client.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(client.Close)

	server := client.Server()
	if server.Name != "Test Gateway" {
		t.Errorf("expected gateway name 'Test Gateway', got %s", server.Name)
	}
	if server.Version == "" {
		t.Error("expected version to be set")
	}

	// The clip list arrives with the first push
	board := waitBoard(t, boards, func(b Board) bool { return len(b.Clips) == 1 })
	if board.Clips[0].Name != "chime.wav" {
		t.Errorf("expected clip chime.wav, got %s", board.Clips[0].Name)
	}

	if err := client.TriggerWith("chime.wav", 0.8, true); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	board = waitBoard(t, boards, func(b Board) bool {
		return len(b.Instances) == 1 && b.Instances[0].State == "playing"
	})
	id := board.Instances[0].ID
	if board.Instances[0].Volume != 0.8 {
		t.Errorf("expected volume 0.8, got %v", board.Instances[0].Volume)
	}
	if !board.Instances[0].Loop {
		t.Error("expected loop flag to be set")
	}

	if err := client.SetVolume(id, 0.25); err != nil {
		t.Fatalf("set volume failed: %v", err)
	}
	if err := client.Mute(id, true); err != nil {
		t.Fatalf("mute failed: %v", err)
	}

	waitBoard(t, boards, func(b Board) bool {
		in := findInstance(b, id)
		return in != nil && in.Volume == 0.25 && in.Muted
	})

	if err := client.Stop(id); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	waitBoard(t, boards, func(b Board) bool {
		in := findInstance(b, id)
		return in != nil && in.State == "stopped"
	})

	// Board() tracks the latest push
	latest := client.Board()
	if len(latest.Clips) != 1 {
		t.Errorf("expected cached board to have 1 clip, got %d", len(latest.Clips))
	}
}

func TestClientCommandError(t *testing.T) {
	startGateway(t, 8752)

	errs := make(chan CommandError, 8)
	client := New(Config{
		ServerAddr: "127.0.0.1:8752",
		Name:       "Test Pad",
		OnError: func(e CommandError) {
			select {
			case errs <- e:
			default:
			}
		},
	})

	if err := client.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(client.Close)

	if err := client.SetVolume(9999, 0.5); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	select {
	case e := <-errs:
		if e.Request != "set_volume" {
			t.Errorf("expected request set_volume, got %s", e.Request)
		}
		if !strings.Contains(e.Reason, "unknown instance") {
			t.Errorf("expected unknown instance reason, got %q", e.Reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no error frame within timeout")
	}
}
