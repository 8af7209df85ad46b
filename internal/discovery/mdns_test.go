// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests manager creation and lifecycle
package discovery

import (
	"testing"
)

func TestNewManager(t *testing.T) {
	config := Config{
		ServiceName: "Test Gateway",
		Port:        8735,
	}

	mgr := NewManager(config)
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}

	if mgr.config.Port != 8735 {
		t.Errorf("expected port 8735, got %d", mgr.config.Port)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Test Gateway", Port: 8735})

	mgr.Stop()
	mgr.Stop()

	select {
	case <-mgr.ctx.Done():
	default:
		t.Error("expected context to be canceled after Stop")
	}
}
