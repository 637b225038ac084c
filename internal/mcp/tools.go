package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the gdb tool API
func (s *Server) registerTools() {
	// Session Management (4 tools - both modes)
	s.registerCreateSession()
	s.registerGetSession()
	s.registerListSessions()
	s.registerCloseSession()

	// Inspection (6 tools - both modes)
	s.registerListBreakpoints()
	s.registerStackFrames()
	s.registerLocals()
	s.registerRegisters()
	s.registerRegisterNames()
	s.registerReadMemory()

	// Control (7 tools - full mode only)
	if s.config.CanUseControlTools() {
		s.registerStart()
		s.registerStop()
		s.registerContinue()
		s.registerStep()
		s.registerNext()
		s.registerSetBreakpoint()
		s.registerDeleteBreakpoints()
	}
}

// Session Management Tools

func (s *Server) registerCreateSession() {
	tool := mcp.NewTool("gdb_create_session",
		mcp.WithDescription("Create a new GDB debug session. Spawns a gdb process in MI mode and returns the sessionId needed by all other tools. Set breakpoints before gdb_start."),
		mcp.WithString("program",
			mcp.Description("Path to the executable to debug. Omit when attaching with pid or loading only a core file."),
		),
		mcp.WithString("cwd",
			mcp.Description("Working directory for gdb and the target program"),
		),
		mcp.WithString("args",
			mcp.Description("JSON array of command-line arguments for the target program, e.g. [\"-v\", \"input.txt\"]"),
		),
		mcp.WithString("symbolFile",
			mcp.Description("Separate symbol file to load (for stripped binaries or embedded targets)"),
		),
		mcp.WithString("coreFile",
			mcp.Description("Core dump file to examine"),
		),
		mcp.WithNumber("pid",
			mcp.Description("Process ID of a running process to attach to"),
		),
		mcp.WithString("commandFile",
			mcp.Description("GDB command file to execute on startup (like -x)"),
		),
		mcp.WithString("sourceDir",
			mcp.Description("Extra source search directory"),
		),
		mcp.WithString("tty",
			mcp.Description("Terminal device for the target program's input/output"),
		),
		mcp.WithNumber("baudRate",
			mcp.Description("Serial line speed for remote targets"),
		),
		mcp.WithBoolean("noInit",
			mcp.Description("Do not read ~/.gdbinit (gdb -nx)"),
		),
		mcp.WithBoolean("noHome",
			mcp.Description("Do not read the home directory gdbinit (gdb -nh)"),
		),
		mcp.WithBoolean("quiet",
			mcp.Description("Suppress the gdb startup banner (default: true)"),
		),
		mcp.WithString("gdbPath",
			mcp.Description("GDB binary to run, e.g. 'arm-none-eabi-gdb' for embedded targets. Defaults to the server's configured gdb."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleCreateSession)
}

func (s *Server) registerGetSession() {
	tool := mcp.NewTool("gdb_get_session",
		mcp.WithDescription("Get the status of a debug session, including the last stop reason and frame"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleGetSession)
}

func (s *Server) registerListSessions() {
	tool := mcp.NewTool("gdb_list_sessions",
		mcp.WithDescription("List all active debug sessions"),
	)
	s.mcpServer.AddTool(tool, s.handleListSessions)
}

func (s *Server) registerCloseSession() {
	tool := mcp.NewTool("gdb_close_session",
		mcp.WithDescription("Close a debug session and terminate its gdb process. Closing an unknown session is not an error."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID to close"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleCloseSession)
}

// Inspection Tools

func (s *Server) registerListBreakpoints() {
	tool := mcp.NewTool("gdb_list_breakpoints",
		mcp.WithDescription("List all breakpoints known to the debugger, with hit counts"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleListBreakpoints)
}

func (s *Server) registerStackFrames() {
	tool := mcp.NewTool("gdb_stack_frames",
		mcp.WithDescription("Get the call stack of the stopped target, innermost frame first (level 0)"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleStackFrames)
}

func (s *Server) registerLocals() {
	tool := mcp.NewTool("gdb_locals",
		mcp.WithDescription("Get local variables of a stack frame. Omit frame to use the currently selected frame."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithNumber("frame",
			mcp.Description("Frame level from gdb_stack_frames (0 = innermost)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleLocals)
}

func (s *Server) registerRegisters() {
	tool := mcp.NewTool("gdb_registers",
		mcp.WithDescription("Get CPU register values in hex for the stopped target"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithString("filter",
			mcp.Description("Substring filter on register names, e.g. 'r1' or 'xmm'"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleRegisters)
}

func (s *Server) registerRegisterNames() {
	tool := mcp.NewTool("gdb_register_names",
		mcp.WithDescription("Get the target architecture's register names"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithString("filter",
			mcp.Description("Substring filter, e.g. 'r1' or 'xmm'"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleRegisterNames)
}

func (s *Server) registerReadMemory() {
	tool := mcp.NewTool("gdb_read_memory",
		mcp.WithDescription("Read target memory. Returns the bytes as hex along with the start address."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("Start address: a hex address like 0x7fffffffe000 or any gdb expression like &buf"),
		),
		mcp.WithNumber("count",
			mcp.Required(),
			mcp.Description("Number of bytes to read"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Byte offset applied to the address (may be negative)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleReadMemory)
}

// Control Tools (Full mode only)

func (s *Server) registerStart() {
	tool := mcp.NewTool("gdb_start",
		mcp.WithDescription("Start (run) the target program. Execution begins immediately; set breakpoints first. Use gdb_get_session to see where it stopped."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleStart)
}

func (s *Server) registerStop() {
	tool := mcp.NewTool("gdb_stop",
		mcp.WithDescription("Interrupt the running target so it can be inspected"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleStop)
}

func (s *Server) registerContinue() {
	tool := mcp.NewTool("gdb_continue",
		mcp.WithDescription("Continue execution until the next breakpoint or program end. Returns immediately; check the session status afterwards."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleContinue)
}

func (s *Server) registerStep() {
	tool := mcp.NewTool("gdb_step",
		mcp.WithDescription("Execute one source line, stepping into function calls"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleStep)
}

func (s *Server) registerNext() {
	tool := mcp.NewTool("gdb_next",
		mcp.WithDescription("Execute one source line, stepping over function calls"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleNext)
}

func (s *Server) registerSetBreakpoint() {
	tool := mcp.NewTool("gdb_set_breakpoint",
		mcp.WithDescription("Set a breakpoint at a source location. Returns the breakpoint number needed by gdb_delete_breakpoints."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Source file path"),
		),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("Line number"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleSetBreakpoint)
}

func (s *Server) registerDeleteBreakpoints() {
	tool := mcp.NewTool("gdb_delete_breakpoints",
		mcp.WithDescription("Delete breakpoints by number"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithString("numbers",
			mcp.Required(),
			mcp.Description("JSON array of breakpoint numbers to delete, e.g. [1, 3]"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDeleteBreakpoints)
}
