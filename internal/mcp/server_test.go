package mcp

import (
	"testing"

	"github.com/ctagard/gdb-mcp/internal/config"
)

// TestNewServer verifies server wiring and the accessors used by embedders.
func TestNewServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeReadOnly

	s := NewServer(cfg)
	defer s.Close()

	if s.GetConfig() != cfg {
		t.Error("GetConfig did not return the server's configuration")
	}
	if s.GetSessionManager() == nil {
		t.Error("GetSessionManager returned nil")
	}
}
