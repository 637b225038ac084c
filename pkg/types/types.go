// Package types defines shared data types used across the GDB-MCP server.
//
// This package provides type definitions for:
//   - SessionStatus: debug session states (created, running, stopped, exited, closed)
//   - CreateSessionRequest: spawn parameters for a new GDB session
//   - Info types: SessionInfo, StackFrame, Variable, Register, Breakpoint
//   - MemoryBlock: result of a memory read, including partial-read sizes
//
// These types are used throughout the codebase to maintain type safety
// and provide clear contracts between components.
package types

import "time"

// SessionStatus represents the status of a debug session
type SessionStatus string

const (
	SessionStatusCreated SessionStatus = "created"
	SessionStatusRunning SessionStatus = "running"
	SessionStatusStopped SessionStatus = "stopped"
	SessionStatusExited  SessionStatus = "exited"
	SessionStatusClosed  SessionStatus = "closed"
)

// Terminal reports whether the status is one the session can never leave.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusExited || s == SessionStatusClosed
}

// CreateSessionRequest holds the spawn parameters for a new GDB session.
// All fields except GDBPath map directly to gdb command-line options.
type CreateSessionRequest struct {
	Program     string   `json:"program,omitempty"`     // executable to debug
	Workdir     string   `json:"cd,omitempty"`          // --cd
	Args        []string `json:"args,omitempty"`        // arguments for the inferior (--args)
	SymbolFile  string   `json:"symbolFile,omitempty"`  // --symbols
	CoreFile    string   `json:"coreFile,omitempty"`    // --core
	AttachPID   int      `json:"pid,omitempty"`         // --pid
	CommandFile string   `json:"commandFile,omitempty"` // --command
	SourceDir   string   `json:"sourceDir,omitempty"`   // --directory
	TTY         string   `json:"tty,omitempty"`         // --tty
	BaudRate    int      `json:"baud,omitempty"`        // -b (remote serial targets)
	NoHome      bool     `json:"nh,omitempty"`          // -nh: skip ~/.gdbinit
	NoInit      bool     `json:"nx,omitempty"`          // -nx: skip all init files
	Quiet       bool     `json:"quiet,omitempty"`       // -q
	GDBPath     string   `json:"gdbPath,omitempty"`     // override configured gdb binary
}

// SessionInfo represents information about a debug session
type SessionInfo struct {
	SessionID  string        `json:"sessionId"`
	Status     SessionStatus `json:"status"`
	Program    string        `json:"program,omitempty"`
	PID        int           `json:"pid,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	StopReason string        `json:"stopReason,omitempty"`
	StopFrame  *StackFrame   `json:"stopFrame,omitempty"`
}

// Breakpoint mirrors one entry of the backend's breakpoint table.
// Number is the backend-assigned id and is authoritative; the local
// store is only ever a copy of what the backend reports.
type Breakpoint struct {
	Number   int    `json:"number"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Func     string `json:"func,omitempty"`
	Address  string `json:"address,omitempty"`
	Enabled  bool   `json:"enabled"`
	HitCount int    `json:"hitCount"`
}

// StackFrame represents one frame of the call stack. Level 0 is innermost.
type StackFrame struct {
	Level   int    `json:"level"`
	Func    string `json:"func,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Address string `json:"address,omitempty"`
}

// Variable represents a variable. Type and Value are opaque backend strings;
// the engine does not parse them further.
type Variable struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
}

// Register represents a machine register and its raw value. The value format
// is backend-dependent (hex for most, vectors for SIMD registers).
type Register struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MemoryBlock is the result of a memory read. Returned may be smaller than
// Requested on partial reads near unmapped boundaries.
type MemoryBlock struct {
	Address   string `json:"address"`
	Contents  []byte `json:"contents"`
	Requested int    `json:"requested"`
	Returned  int    `json:"returned"`
}
