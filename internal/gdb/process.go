// Package gdb implements the GDB/MI session manager and protocol engine.
//
// Each debug session owns one supervised gdb process and speaks the MI
// protocol to it over the process's standard pipes. This package provides:
//   - Process: supervisor owning the backend process and its pipes
//   - transport: per-session line reader/writer feeding the MI parser
//   - correlator: token-to-waiter table matching results to callers
//   - dispatcher: async event routing and the session's stop snapshot
//   - Session / SessionManager: lifecycle and the process-wide registry
//
// The process is treated as an external actor: the supervisor is the sole
// owner of the OS handles, and every other component exchanges messages
// with it through the transport.
package gdb

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/ctagard/gdb-mcp/pkg/types"
)

// Process supervises one gdb backend process. It owns the process handle
// and the stdio pipes exclusively; no other component closes them.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	exitOnce sync.Once
	exitCh   chan struct{}
	exitErr  error
}

// buildArgs translates spawn parameters into a gdb argument vector.
// MI interpreter selection always comes first; --args must stay last
// because it consumes the remainder of the command line.
func buildArgs(req types.CreateSessionRequest) []string {
	args := []string{"--interpreter=mi2"}

	if req.Quiet {
		args = append(args, "-q")
	}
	if req.NoInit {
		args = append(args, "-nx")
	}
	if req.NoHome {
		args = append(args, "-nh")
	}
	if req.Workdir != "" {
		args = append(args, "--cd="+req.Workdir)
	}
	if req.BaudRate > 0 {
		args = append(args, "-b", strconv.Itoa(req.BaudRate))
	}
	if req.SymbolFile != "" {
		args = append(args, "--symbols", req.SymbolFile)
	}
	if req.CoreFile != "" {
		args = append(args, "--core", req.CoreFile)
	}
	if req.AttachPID > 0 {
		args = append(args, "--pid", strconv.Itoa(req.AttachPID))
	}
	if req.CommandFile != "" {
		args = append(args, "--command", req.CommandFile)
	}
	if req.SourceDir != "" {
		args = append(args, "--directory", req.SourceDir)
	}
	if req.TTY != "" {
		args = append(args, "--tty", req.TTY)
	}

	if req.Program != "" {
		if len(req.Args) > 0 {
			args = append(args, "--args", req.Program)
			args = append(args, req.Args...)
		} else {
			args = append(args, req.Program)
		}
	}
	return args
}

// Spawn starts a gdb backend with stdin/stdout captured as pipes. stderr is
// passed through to the server's own stderr so backend diagnostics stay
// visible in the logs. The returned Process is already reaping: its exit
// notification fires exactly once, as soon as the process ends.
func Spawn(gdbPath string, req types.CreateSessionRequest) (*Process, error) {
	//nolint:gosec // G204: spawning a debugger backend is this server's purpose
	cmd := exec.Command(gdbPath, buildArgs(req)...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr
	setProcAttr(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, err
	}

	p := &Process{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		exitCh: make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		p.exitOnce.Do(func() {
			p.exitErr = err
			close(p.exitCh)
		})
	}()

	return p, nil
}

// Stdin returns the writer connected to the backend's standard input.
func (p *Process) Stdin() io.Writer { return p.stdin }

// Stdout returns the reader connected to the backend's standard output.
func (p *Process) Stdout() io.Reader { return p.stdout }

// PID returns the backend's process id, or 0 if it never started.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// ExitNotify returns a channel closed exactly once when the backend exits.
func (p *Process) ExitNotify() <-chan struct{} { return p.exitCh }

// ExitErr returns the process exit error. Only meaningful after ExitNotify
// has fired.
func (p *Process) ExitErr() error { return p.exitErr }

// Terminate requests graceful termination and escalates to a process-group
// kill after the grace period. The process is always reaped: the Wait
// goroutine started in Spawn collects it regardless of how it dies.
func (p *Process) Terminate(grace time.Duration) error {
	select {
	case <-p.exitCh:
		return nil
	default:
	}

	// Closing stdin is the polite MI shutdown; gdb exits on EOF.
	p.stdin.Close()
	signalTerm(p.cmd)

	select {
	case <-p.exitCh:
		return nil
	case <-time.After(grace):
	}

	if err := killProcessGroup(p.PID(), p.cmd); err != nil {
		return err
	}
	<-p.exitCh
	return nil
}
