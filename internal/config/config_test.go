package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies the defaults are usable without a config file.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != ModeFull {
		t.Errorf("expected full mode by default, got %s", cfg.Mode)
	}
	if cfg.GDBPath != "gdb" {
		t.Errorf("expected gdb on PATH by default, got %q", cfg.GDBPath)
	}
	if cfg.MaxSessions <= 0 {
		t.Errorf("expected a positive session limit, got %d", cfg.MaxSessions)
	}
	if cfg.CommandTimeout <= 0 {
		t.Errorf("expected a positive command timeout, got %v", cfg.CommandTimeout)
	}
	if !cfg.CanUseControlTools() {
		t.Error("expected control tools enabled in full mode")
	}
}

// TestLoadConfig verifies JSON values override the defaults.
func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"mode": "readonly",
		"gdbPath": "/usr/local/bin/arm-none-eabi-gdb",
		"maxSessions": 3,
		"commandTimeout": 5000000000,
		"logMiWire": true
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Mode != ModeReadOnly {
		t.Errorf("expected readonly mode, got %s", cfg.Mode)
	}
	if cfg.GDBPath != "/usr/local/bin/arm-none-eabi-gdb" {
		t.Errorf("unexpected gdb path: %q", cfg.GDBPath)
	}
	if cfg.MaxSessions != 3 {
		t.Errorf("expected 3 max sessions, got %d", cfg.MaxSessions)
	}
	if cfg.CommandTimeout != 5*time.Second {
		t.Errorf("expected 5s command timeout, got %v", cfg.CommandTimeout)
	}
	if !cfg.LogMIWire {
		t.Error("expected wire logging enabled")
	}
	// Values absent from the file keep their defaults.
	if cfg.SessionTimeout != 30*time.Minute {
		t.Errorf("expected default session timeout, got %v", cfg.SessionTimeout)
	}
}

// TestLoadConfig_MissingFile verifies a bad path is an error while an empty
// path means defaults.
func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.json"); err == nil {
		t.Error("expected error for missing config file")
	}
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig with empty path failed: %v", err)
	}
	if cfg.Mode != ModeFull {
		t.Errorf("expected defaults for empty path, got %s", cfg.Mode)
	}
}

// TestReadOnlyModeGating verifies capability checks follow the mode.
func TestReadOnlyModeGating(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeReadOnly

	if cfg.CanUseControlTools() {
		t.Error("expected control tools disabled in readonly mode")
	}
	if cfg.CanAttach() {
		t.Error("expected attach disabled in readonly mode")
	}
	if !cfg.CanSpawn() {
		t.Error("expected spawn still allowed for inspection sessions")
	}
}
