// Package logflags configures the per-layer loggers used across the server.
// Each layer (session manager, MI wire, MCP surface) gets its own logrus
// entry tagged with a "layer" field so log output can be filtered by origin.
package logflags

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	base   = logrus.New()
	miWire bool
)

func init() {
	// MCP stdio owns stdout; everything diagnostic goes to stderr.
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.InfoLevel)
}

// Setup configures the log level and whether raw MI wire traffic is echoed.
func Setup(level string, wireEcho bool) error {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lv)
	miWire = wireEcho
	return nil
}

// SetOutput redirects all layer loggers, mainly for tests.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

func makeLogger(fields logrus.Fields) *logrus.Entry {
	return base.WithFields(fields)
}

// Session returns a logger for the session manager layer.
func Session() *logrus.Entry {
	return makeLogger(logrus.Fields{"layer": "session"})
}

// MIWire returns a logger for raw MI wire traffic, or nil when wire
// echoing is disabled.
func MIWire() *logrus.Entry {
	if !miWire {
		return nil
	}
	return makeLogger(logrus.Fields{"layer": "miwire"})
}

// Events returns a logger for the async event dispatcher layer.
func Events() *logrus.Entry {
	return makeLogger(logrus.Fields{"layer": "events"})
}

// MCP returns a logger for the outward tool surface.
func MCP() *logrus.Entry {
	return makeLogger(logrus.Fields{"layer": "mcp"})
}
