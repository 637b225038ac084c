// Package config provides configuration management for the GDB-MCP server.
//
// Configuration controls:
//   - Capability mode (readonly vs full): determines which tools are available
//   - Permission flags: control spawning gdb and attaching to processes
//   - GDB settings: the binary to run and per-command timeout
//   - Safety limits: maximum sessions and session timeout
//
// Configuration can be loaded from a JSON file or use sensible defaults.
// The readonly mode exposes only inspection tools, while full mode enables
// all debugging capabilities including execution control.
package config

import (
	"encoding/json"
	"os"
	"time"
)

// CapabilityMode defines the level of debugging capabilities exposed
type CapabilityMode string

const (
	ModeReadOnly CapabilityMode = "readonly" // Only inspection tools
	ModeFull     CapabilityMode = "full"     // All tools enabled
)

// Config holds the server configuration
type Config struct {
	// Capability levels
	Mode        CapabilityMode `json:"mode"`
	AllowSpawn  bool           `json:"allowSpawn"`
	AllowAttach bool           `json:"allowAttach"`

	// GDB backend settings
	GDBPath        string        `json:"gdbPath"`
	CommandTimeout time.Duration `json:"commandTimeout"`

	// Limits for safety
	MaxSessions    int           `json:"maxSessions"`
	SessionTimeout time.Duration `json:"sessionTimeout"`

	// Logging
	LogLevel  string `json:"logLevel"`
	LogMIWire bool   `json:"logMiWire"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeFull,
		AllowSpawn:     true,
		AllowAttach:    true,
		GDBPath:        "gdb",
		CommandTimeout: 10 * time.Second,
		MaxSessions:    10,
		SessionTimeout: 30 * time.Minute,
		LogLevel:       "info",
	}
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// CanUseControlTools returns true if control tools are enabled
func (c *Config) CanUseControlTools() bool {
	return c.Mode == ModeFull
}

// CanSpawn returns true if spawning gdb processes is allowed
func (c *Config) CanSpawn() bool {
	return c.AllowSpawn
}

// CanAttach returns true if attaching to running processes is allowed
func (c *Config) CanAttach() bool {
	return c.Mode == ModeFull && c.AllowAttach
}
