package mcp

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ctagard/gdb-mcp/internal/errors"
	"github.com/ctagard/gdb-mcp/internal/gdb"
	"github.com/ctagard/gdb-mcp/pkg/types"
)

// Session Management Handlers

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.config.CanSpawn() {
		return mcp.NewToolResultError(errors.PermissionDenied("spawn", string(s.config.Mode)).Error()), nil
	}

	req := types.CreateSessionRequest{
		Quiet: request.GetBool("quiet", true),
	}
	if program, err := request.RequireString("program"); err == nil {
		req.Program = program
	}
	if cwd, err := request.RequireString("cwd"); err == nil {
		req.Workdir = cwd
	}
	if argsJSON, err := request.RequireString("args"); err == nil && argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &req.Args); err != nil {
			return mcp.NewToolResultError(errors.InvalidParameter("args", argsJSON,
				"a JSON array of strings, e.g. [\"-v\", \"input.txt\"]").Error()), nil
		}
	}
	if symbolFile, err := request.RequireString("symbolFile"); err == nil {
		req.SymbolFile = symbolFile
	}
	if coreFile, err := request.RequireString("coreFile"); err == nil {
		req.CoreFile = coreFile
	}
	if pid, err := request.RequireFloat("pid"); err == nil && pid > 0 {
		if !s.config.CanAttach() {
			return mcp.NewToolResultError(errors.PermissionDenied("attach", string(s.config.Mode)).Error()), nil
		}
		req.AttachPID = int(pid)
	}
	if commandFile, err := request.RequireString("commandFile"); err == nil {
		req.CommandFile = commandFile
	}
	if sourceDir, err := request.RequireString("sourceDir"); err == nil {
		req.SourceDir = sourceDir
	}
	if tty, err := request.RequireString("tty"); err == nil {
		req.TTY = tty
	}
	if baud, err := request.RequireFloat("baudRate"); err == nil && baud > 0 {
		req.BaudRate = int(baud)
	}
	req.NoInit = request.GetBool("noInit", false)
	req.NoHome = request.GetBool("noHome", false)
	if gdbPath, err := request.RequireString("gdbPath"); err == nil {
		req.GDBPath = gdbPath
	}

	if req.Program == "" && req.AttachPID == 0 && req.CoreFile == "" && req.CommandFile == "" {
		return mcp.NewToolResultError(errors.MissingParameter("program",
			"Provide the executable to debug, or pid to attach, or coreFile to examine a dump.").Error()), nil
	}

	session, err := s.sessionManager.CreateSession(req)
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(session.Info())
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(session.Info())
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := s.sessionManager.ListSessions()
	infos := make([]types.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, session.Info())
	}
	return jsonResult(map[string]interface{}{
		"sessions": infos,
		"count":    len(infos),
	})
}

func (s *Server) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("sessionId",
			"Provide the sessionId returned from gdb_create_session.").Error()), nil
	}

	if err := s.sessionManager.CloseSession(sessionID); err != nil {
		return errorResult(err), nil
	}

	return jsonResult(map[string]interface{}{
		"sessionId": sessionID,
		"status":    "closed",
	})
}

// Control Handlers

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlResult(request, "started", func(session *gdb.Session) error {
		return session.Start(ctx)
	})
}

func (s *Server) handleStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlResult(request, "interrupted", func(session *gdb.Session) error {
		return session.Stop(ctx)
	})
}

func (s *Server) handleContinue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlResult(request, "continued", func(session *gdb.Session) error {
		return session.Continue(ctx)
	})
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlResult(request, "stepped", func(session *gdb.Session) error {
		return session.Step(ctx)
	})
}

func (s *Server) handleNext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlResult(request, "stepped over", func(session *gdb.Session) error {
		return session.Next(ctx)
	})
}

func (s *Server) handleSetBreakpoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return errorResult(err), nil
	}

	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("file", "Provide the source file path.").Error()), nil
	}
	line, err := request.RequireFloat("line")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("line", "Provide the line number.").Error()), nil
	}

	bp, err := session.SetBreakpoint(ctx, file, int(line))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(bp)
}

func (s *Server) handleDeleteBreakpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return errorResult(err), nil
	}

	numbersJSON, err := request.RequireString("numbers")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("numbers",
			"Provide a JSON array of breakpoint numbers, e.g. [1, 3].").Error()), nil
	}
	var numbers []int
	if err := json.Unmarshal([]byte(numbersJSON), &numbers); err != nil {
		return mcp.NewToolResultError(errors.InvalidParameter("numbers", numbersJSON,
			"a JSON array of integers, e.g. [1, 3]").Error()), nil
	}

	if err := session.DeleteBreakpoints(ctx, numbers); err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]interface{}{
		"deleted": numbers,
	})
}

// Inspection Handlers

func (s *Server) handleListBreakpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return errorResult(err), nil
	}

	bps, err := session.ListBreakpoints(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]interface{}{
		"breakpoints": bps,
		"count":       len(bps),
	})
}

func (s *Server) handleStackFrames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return errorResult(err), nil
	}

	frames, err := session.StackFrames(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]interface{}{
		"frames": frames,
		"count":  len(frames),
	})
}

func (s *Server) handleLocals(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return errorResult(err), nil
	}

	var frame *int
	if f, err := request.RequireFloat("frame"); err == nil {
		level := int(f)
		frame = &level
	}

	vars, err := session.Locals(ctx, frame)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]interface{}{
		"variables": vars,
		"count":     len(vars),
	})
}

func (s *Server) handleRegisters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return errorResult(err), nil
	}

	filter, _ := request.RequireString("filter")
	regs, err := session.Registers(ctx, filter)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]interface{}{
		"registers": regs,
		"count":     len(regs),
	})
}

func (s *Server) handleRegisterNames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return errorResult(err), nil
	}

	names, err := session.RegisterNames(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	filter, _ := request.RequireString("filter")
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		filtered = append(filtered, name)
	}
	return jsonResult(map[string]interface{}{
		"names": filtered,
		"count": len(filtered),
	})
}

func (s *Server) handleReadMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return errorResult(err), nil
	}

	address, err := request.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("address",
			"Provide a hex address like 0x7fffffffe000 or a gdb expression like &buf.").Error()), nil
	}
	count, err := request.RequireFloat("count")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("count", "Provide the number of bytes to read.").Error()), nil
	}
	var offset int64
	if o, err := request.RequireFloat("offset"); err == nil {
		offset = int64(o)
	}

	block, err := session.ReadMemory(ctx, address, int(count), offset)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]interface{}{
		"address":   block.Address,
		"contents":  hex.EncodeToString(block.Contents),
		"requested": block.Requested,
		"returned":  block.Returned,
	})
}

// Helper functions

func (s *Server) getSession(request mcp.CallToolRequest) (*gdb.Session, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return nil, errors.MissingParameter("sessionId",
			"Provide the sessionId returned from gdb_create_session. Use gdb_list_sessions to see active sessions.")
	}
	return s.sessionManager.GetSession(sessionID)
}

// controlResult runs one execution-control operation and reports the
// session's resulting status.
func (s *Server) controlResult(request mcp.CallToolRequest, action string, op func(*gdb.Session) error) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return errorResult(err), nil
	}
	if err := op(session); err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]interface{}{
		"sessionId": session.ID,
		"action":    action,
		"status":    session.Status(),
	})
}

// errorResult renders an error as a tool failure, normalizing untyped
// errors into the structured taxonomy so clients always see a hint.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(errors.FromError(err).Error())
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
