package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ctagard/gdb-mcp/internal/config"
	"github.com/ctagard/gdb-mcp/internal/logflags"
	"github.com/ctagard/gdb-mcp/internal/mcp"
	"github.com/ctagard/gdb-mcp/internal/version"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	mode := flag.String("mode", "", "Capability mode: 'readonly' or 'full'")
	gdbPath := flag.String("gdb", "", "Path to the gdb binary")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logWire := flag.Bool("log-wire", false, "Echo raw MI traffic to the log")
	showVersion := flag.Bool("version", false, "Show version and exit")
	help := flag.Bool("help", false, "Show help and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("gdb-mcp version %s\n", version.Version)
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Command line overrides
	if *mode == "readonly" {
		cfg.Mode = config.ModeReadOnly
	} else if *mode == "full" {
		cfg.Mode = config.ModeFull
	}
	if *gdbPath != "" {
		cfg.GDBPath = *gdbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logWire {
		cfg.LogMIWire = true
	}

	if err := logflags.Setup(cfg.LogLevel, cfg.LogMIWire); err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	checker := version.NewChecker()
	checker.CheckForUpdatesAsync()

	// Create and start the server
	server := mcp.NewServer(cfg)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutting down...")
		if info := checker.GetUpdateInfo(); info != nil {
			if msg := info.UpdateMessage(); msg != "" {
				log.Println(msg)
			}
		}
		server.Close()
		os.Exit(0)
	}()

	// Start serving via stdio
	log.Println("GDB-MCP server starting...")
	if err := server.ServeStdio(); err != nil {
		server.Close()
		log.Fatalf("Server error: %v", err)
	}
	server.Close()
}

func printHelp() {
	fmt.Println(`GDB-MCP: GDB Machine Interface MCP Server

A Model Context Protocol (MCP) server that drives gdb through its MI
protocol, enabling AI agents to debug native programs, core dumps, and
remote embedded targets.

USAGE:
    gdb-mcp [OPTIONS]

OPTIONS:
    -config <path>     Path to configuration file (JSON)
    -mode <mode>       Capability mode: 'readonly' or 'full' (default: full)
    -gdb <path>        Path to the gdb binary (default: gdb)
    -log-level <lvl>   Log level: debug, info, warn, error (default: info)
    -log-wire          Echo raw MI traffic to the log
    -version           Show version and exit
    -help              Show this help message

CONFIGURATION:
    Create a JSON configuration file to customize behavior:

    {
        "mode": "full",
        "allowSpawn": true,
        "allowAttach": true,
        "gdbPath": "gdb",
        "maxSessions": 10,
        "logLevel": "info"
    }

MCP INTEGRATION:
    Add to your MCP client configuration:

    {
        "mcpServers": {
            "gdb-mcp": {
                "command": "gdb-mcp",
                "args": ["--mode", "full"]
            }
        }
    }

TOOLS:
    Session Management:
        gdb_create_session     Spawn gdb and create a session
        gdb_get_session        Get session status and stop state
        gdb_list_sessions      List active sessions
        gdb_close_session      Terminate a session

    Inspection (read-only):
        gdb_list_breakpoints   List breakpoints
        gdb_stack_frames       Get the call stack
        gdb_locals             Get local variables
        gdb_registers          Get register values
        gdb_register_names     Get register names
        gdb_read_memory        Read target memory

    Control (full mode only):
        gdb_start              Run the target program
        gdb_stop               Interrupt the target
        gdb_continue           Continue execution
        gdb_step               Step into
        gdb_next               Step over
        gdb_set_breakpoint     Set a breakpoint
        gdb_delete_breakpoints Delete breakpoints

For more information, visit: https://github.com/ctagard/gdb-mcp`)
}
