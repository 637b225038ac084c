// Package mcp provides the Model Context Protocol (MCP) server implementation.
//
// This package exposes GDB debugging capabilities through MCP tools that can
// be used by AI assistants and other MCP clients:
//
// Session Management (always available):
//   - gdb_create_session: Spawn a gdb process and register a session
//   - gdb_get_session: Get the status of one session
//   - gdb_list_sessions: List active sessions
//   - gdb_close_session: Terminate a session
//
// Inspection (always available):
//   - gdb_list_breakpoints: List the backend's breakpoint table
//   - gdb_stack_frames: Get the call stack of a stopped target
//   - gdb_locals: Get local variables of a frame
//   - gdb_registers: Get register values
//   - gdb_register_names: Get the architecture's register names
//   - gdb_read_memory: Read target memory
//
// Control (full mode only):
//   - gdb_start, gdb_stop, gdb_continue, gdb_step, gdb_next
//   - gdb_set_breakpoint, gdb_delete_breakpoints
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/ctagard/gdb-mcp/internal/config"
	"github.com/ctagard/gdb-mcp/internal/gdb"
	"github.com/ctagard/gdb-mcp/internal/logflags"
	"github.com/ctagard/gdb-mcp/internal/version"
)

// Server wraps the MCP server with debugging capabilities
type Server struct {
	mcpServer      *server.MCPServer
	sessionManager *gdb.SessionManager
	config         *config.Config
	log            *logrus.Entry
}

// NewServer creates a new GDB-MCP server
func NewServer(cfg *config.Config) *Server {
	mcpServer := server.NewMCPServer(
		"gdb-mcp",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	sessionManager := gdb.NewSessionManager(cfg.GDBPath, cfg.MaxSessions, cfg.SessionTimeout, cfg.CommandTimeout)

	s := &Server{
		mcpServer:      mcpServer,
		sessionManager: sessionManager,
		config:         cfg,
		log:            logflags.MCP(),
	}

	s.registerTools()

	return s
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	s.log.WithField("mode", s.config.Mode).Info("serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

// Close shuts down the server
func (s *Server) Close() {
	s.log.Info("shutting down, closing all sessions")
	s.sessionManager.Close()
}

// GetSessionManager returns the session manager
func (s *Server) GetSessionManager() *gdb.SessionManager {
	return s.sessionManager
}

// GetConfig returns the server configuration
func (s *Server) GetConfig() *config.Config {
	return s.config
}
