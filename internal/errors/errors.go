// Package errors provides structured error types for the GDB-MCP server.
// These errors include helpful hints and suggestions that guide the LLM
// to correct course when something goes wrong.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a category of error for programmatic handling
type ErrorCode string

const (
	// Session errors
	CodeSessionNotFound     ErrorCode = "SESSION_NOT_FOUND"
	CodeSessionLimitReached ErrorCode = "SESSION_LIMIT_REACHED"
	CodeSessionTerminated   ErrorCode = "SESSION_TERMINATED"
	CodeInvalidState        ErrorCode = "INVALID_STATE"

	// Backend process errors
	CodeSpawnFailed   ErrorCode = "GDB_SPAWN_FAILED"
	CodeProcessExited ErrorCode = "PROCESS_EXITED"

	// Protocol errors
	CodeCommandTimeout   ErrorCode = "COMMAND_TIMEOUT"
	CodeCommandCancelled ErrorCode = "COMMAND_CANCELLED"
	CodeCommandFailed    ErrorCode = "COMMAND_FAILED"
	CodeProtocolError ErrorCode = "PROTOCOL_ERROR"
	CodeDecodeFailed  ErrorCode = "DECODE_FAILED"

	// Parameter errors
	CodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	CodeInvalidParameter ErrorCode = "INVALID_PARAMETER"

	// Permission errors
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// DebugError is a structured error type that includes helpful information
// for the LLM to understand what went wrong and how to fix it.
type DebugError struct {
	// Code is a machine-readable error category
	Code ErrorCode `json:"code"`

	// Message is a human/LLM-readable description of what went wrong
	Message string `json:"message"`

	// Hint provides actionable guidance on how to fix the error
	Hint string `json:"hint,omitempty"`

	// Details contains additional context (e.g., the invalid value, expected format)
	Details map[string]interface{} `json:"details,omitempty"`

	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *DebugError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Hint != "" {
		sb.WriteString(" | Hint: ")
		sb.WriteString(e.Hint)
	}

	return sb.String()
}

// Unwrap returns the underlying error for error chaining
func (e *DebugError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *DebugError) WithDetails(key string, value interface{}) *DebugError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *DebugError) WithCause(err error) *DebugError {
	e.Cause = err
	return e
}

// --- Session Errors ---

// SessionNotFound creates an error for when a session ID doesn't exist
func SessionNotFound(sessionID string) *DebugError {
	return &DebugError{
		Code:    CodeSessionNotFound,
		Message: fmt.Sprintf("session '%s' not found", sessionID),
		Hint:    "Use gdb_list_sessions to see active sessions, or gdb_create_session to start a new one.",
		Details: map[string]interface{}{
			"sessionId": sessionID,
		},
	}
}

// SessionLimitReached creates an error when max sessions is reached
func SessionLimitReached(maxSessions int) *DebugError {
	return &DebugError{
		Code:    CodeSessionLimitReached,
		Message: fmt.Sprintf("maximum number of sessions (%d) reached", maxSessions),
		Hint:    "Use gdb_close_session to close an existing session before creating a new one.",
		Details: map[string]interface{}{
			"maxSessions": maxSessions,
		},
	}
}

// SessionTerminated creates an error for operations against a session whose
// pending work was cancelled by close or backend exit.
func SessionTerminated(sessionID string) *DebugError {
	return &DebugError{
		Code:    CodeSessionTerminated,
		Message: fmt.Sprintf("session '%s' has terminated", sessionID),
		Hint:    "The session was closed or its gdb process ended. Create a new session to continue debugging.",
		Details: map[string]interface{}{
			"sessionId": sessionID,
		},
	}
}

// InvalidState creates an error for operations the session's current
// lifecycle state does not permit.
func InvalidState(sessionID, status, wanted string) *DebugError {
	return &DebugError{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("session '%s' is %s, operation requires %s", sessionID, status, wanted),
		Hint:    "Use gdb_get_session to check the session state. Execution control needs a live gdb process.",
		Details: map[string]interface{}{
			"sessionId": sessionID,
			"status":    status,
		},
	}
}

// --- Backend Process Errors ---

// SpawnFailed creates an error when the gdb process cannot be started
func SpawnFailed(gdbPath string, err error) *DebugError {
	return &DebugError{
		Code:    CodeSpawnFailed,
		Message: fmt.Sprintf("failed to spawn gdb at '%s': %v", gdbPath, err),
		Hint:    "Ensure gdb is installed and on PATH, or pass gdbPath explicitly. For embedded targets use the cross toolchain binary, e.g. arm-none-eabi-gdb.",
		Cause:   err,
		Details: map[string]interface{}{
			"gdbPath": gdbPath,
		},
	}
}

// ProcessExited creates an error for commands interrupted by backend death
func ProcessExited(sessionID string) *DebugError {
	return &DebugError{
		Code:    CodeProcessExited,
		Message: fmt.Sprintf("gdb process for session '%s' exited", sessionID),
		Hint:    "The debugger backend died while commands were pending. Check stderr logs, then create a new session.",
		Details: map[string]interface{}{
			"sessionId": sessionID,
		},
	}
}

// --- Protocol Errors ---

// CommandTimeout creates an error when no result arrives within the deadline
func CommandTimeout(command string, timeoutSeconds float64) *DebugError {
	return &DebugError{
		Code:    CodeCommandTimeout,
		Message: fmt.Sprintf("command %q timed out after %.0f seconds", command, timeoutSeconds),
		Hint:    "The target may be running or gdb may be busy. The session is still alive; try gdb_stop to interrupt execution.",
		Details: map[string]interface{}{
			"command":        command,
			"timeoutSeconds": timeoutSeconds,
		},
	}
}

// CommandFailed creates an error carrying the backend's ^error message verbatim
func CommandFailed(command, backendMsg string) *DebugError {
	return &DebugError{
		Code:    CodeCommandFailed,
		Message: fmt.Sprintf("gdb rejected %q: %s", command, backendMsg),
		Hint:    "This is the debugger's own error text. The session remains usable.",
		Details: map[string]interface{}{
			"command": command,
			"msg":     backendMsg,
		},
	}
}

// ProtocolError creates a session-fatal error for unparseable protocol framing
func ProtocolError(err error) *DebugError {
	return &DebugError{
		Code:    CodeProtocolError,
		Message: fmt.Sprintf("MI protocol framing error: %v", err),
		Hint:    "The engine can no longer correlate commands with results on this session. Close it and create a new one.",
		Cause:   err,
	}
}

// DecodeFailed creates an error for a result whose payload cannot be decoded
func DecodeFailed(command string, err error) *DebugError {
	return &DebugError{
		Code:    CodeDecodeFailed,
		Message: fmt.Sprintf("could not decode the result of %q: %v", command, err),
		Hint:    "The gdb version may format this record differently. The session remains usable.",
		Cause:   err,
		Details: map[string]interface{}{
			"command": command,
		},
	}
}

// --- Parameter Errors ---

// MissingParameter creates an error for missing required parameters
func MissingParameter(paramName, description string) *DebugError {
	return &DebugError{
		Code:    CodeMissingParameter,
		Message: fmt.Sprintf("required parameter '%s' is missing", paramName),
		Hint:    description,
		Details: map[string]interface{}{
			"parameter": paramName,
		},
	}
}

// InvalidParameter creates an error for invalid parameter values
func InvalidParameter(paramName string, value interface{}, expected string) *DebugError {
	return &DebugError{
		Code:    CodeInvalidParameter,
		Message: fmt.Sprintf("invalid value for parameter '%s': %v", paramName, value),
		Hint:    fmt.Sprintf("Expected: %s", expected),
		Details: map[string]interface{}{
			"parameter": paramName,
			"value":     value,
			"expected":  expected,
		},
	}
}

// --- Permission Errors ---

// PermissionDenied creates an error for operations disabled by server mode
func PermissionDenied(operation, mode string) *DebugError {
	return &DebugError{
		Code:    CodePermissionDenied,
		Message: fmt.Sprintf("%s is not allowed in current server mode", operation),
		Hint:    fmt.Sprintf("This operation is disabled in '%s' mode. Ask the administrator to run the server in 'full' mode.", mode),
		Details: map[string]interface{}{
			"operation": operation,
			"mode":      mode,
		},
	}
}

// --- Helper for wrapping generic errors ---

// Wrap wraps a generic error with context
func Wrap(code ErrorCode, message string, hint string, err error) *DebugError {
	return &DebugError{
		Code:    code,
		Message: message,
		Hint:    hint,
		Cause:   err,
	}
}

// FromError creates a DebugError from a generic error, attempting to preserve any existing structure
func FromError(err error) *DebugError {
	var de *DebugError
	if stderrors.As(err, &de) {
		return de
	}
	return &DebugError{
		Code:    "UNKNOWN_ERROR",
		Message: err.Error(),
		Hint:    "An unexpected error occurred. Please check the error message for details.",
		Cause:   err,
	}
}

// IsCode reports whether err is a DebugError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var de *DebugError
	return stderrors.As(err, &de) && de.Code == code
}
