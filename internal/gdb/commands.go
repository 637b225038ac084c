package gdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctagard/gdb-mcp/internal/errors"
	"github.com/ctagard/gdb-mcp/internal/mi"
	"github.com/ctagard/gdb-mcp/pkg/types"
)

// Typed session operations. Each wraps one MI command, decodes its result
// into pkg/types shapes and keeps the session's mirrors current. Backend
// rejection (^error) surfaces as a COMMAND_FAILED error carrying the
// backend's own message.

// Start launches the target program.
func (s *Session) Start(ctx context.Context) error {
	_, err := s.run(ctx, "-exec-run")
	return err
}

// Stop interrupts a running target. The resulting *stopped event moves the
// session to Stopped via the dispatcher.
func (s *Session) Stop(ctx context.Context) error {
	_, err := s.run(ctx, "-exec-interrupt")
	return err
}

// Continue resumes execution from a stopped target.
func (s *Session) Continue(ctx context.Context) error {
	if err := s.requireStopped(); err != nil {
		return err
	}
	_, err := s.run(ctx, "-exec-continue")
	return err
}

// Step executes one source line, stepping into calls.
func (s *Session) Step(ctx context.Context) error {
	if err := s.requireStopped(); err != nil {
		return err
	}
	_, err := s.run(ctx, "-exec-step")
	return err
}

// Next executes one source line, stepping over calls.
func (s *Session) Next(ctx context.Context) error {
	if err := s.requireStopped(); err != nil {
		return err
	}
	_, err := s.run(ctx, "-exec-next")
	return err
}

// SetBreakpoint inserts a breakpoint at file:line and returns the
// backend-assigned breakpoint, recording it in the session's mirror.
func (s *Session) SetBreakpoint(ctx context.Context, file string, line int) (types.Breakpoint, error) {
	if line <= 0 {
		return types.Breakpoint{}, errors.InvalidParameter("line", line, "a positive line number")
	}

	cmd := fmt.Sprintf("-break-insert %q", fmt.Sprintf("%s:%d", file, line))
	r, err := s.run(ctx, cmd)
	if err != nil {
		return types.Breakpoint{}, err
	}

	bp, err := mi.DecodeInsertedBreakpoint(r.Fields)
	if err != nil {
		// The insert went through but the payload is ambiguous; re-query so
		// the mirror matches whatever the backend actually did.
		if _, listErr := s.ListBreakpoints(ctx); listErr != nil {
			s.log.WithError(listErr).Warn("breakpoint mirror resync failed")
		}
		return types.Breakpoint{}, errors.DecodeFailed(cmd, err)
	}

	s.mu.Lock()
	s.breakpoints[bp.Number] = bp
	s.mu.Unlock()
	return bp, nil
}

// DeleteBreakpoints removes the given breakpoints by number.
func (s *Session) DeleteBreakpoints(ctx context.Context, numbers []int) error {
	if len(numbers) == 0 {
		return errors.MissingParameter("breakpoint_numbers", "Pass the numbers of the breakpoints to delete, e.g. from gdb_list_breakpoints.")
	}

	args := make([]string, len(numbers))
	for i, n := range numbers {
		args[i] = fmt.Sprintf("%d", n)
	}
	if _, err := s.run(ctx, "-break-delete "+strings.Join(args, " ")); err != nil {
		// gdb applies deletes up to the first bad number before erroring,
		// so a rejected command may still have changed the table.
		if errors.IsCode(err, errors.CodeCommandFailed) {
			if _, listErr := s.ListBreakpoints(ctx); listErr != nil {
				s.log.WithError(listErr).Warn("breakpoint mirror resync failed")
			}
		}
		return err
	}

	s.mu.Lock()
	for _, n := range numbers {
		delete(s.breakpoints, n)
	}
	s.mu.Unlock()
	return nil
}

// ListBreakpoints queries the backend's breakpoint table. The backend is
// authoritative: the session mirror is replaced wholesale with the result.
func (s *Session) ListBreakpoints(ctx context.Context) ([]types.Breakpoint, error) {
	const cmd = "-break-list"
	r, err := s.run(ctx, cmd)
	if err != nil {
		return nil, err
	}

	bps, warnings, err := mi.DecodeBreakpointList(r.Fields)
	if err != nil {
		return nil, errors.DecodeFailed(cmd, err)
	}
	for _, w := range warnings {
		s.log.WithError(w).Warn("skipping malformed breakpoint entry")
	}

	s.mu.Lock()
	s.breakpoints = make(map[int]types.Breakpoint, len(bps))
	for _, bp := range bps {
		s.breakpoints[bp.Number] = bp
	}
	s.mu.Unlock()
	return bps, nil
}

// StackFrames returns the call stack of the current thread, innermost
// frame first.
func (s *Session) StackFrames(ctx context.Context) ([]types.StackFrame, error) {
	if err := s.requireStopped(); err != nil {
		return nil, err
	}

	const cmd = "-stack-list-frames"
	r, err := s.run(ctx, cmd)
	if err != nil {
		return nil, err
	}

	frames, warnings, err := mi.DecodeStackFrames(r.Fields)
	if err != nil {
		return nil, errors.DecodeFailed(cmd, err)
	}
	for _, w := range warnings {
		s.log.WithError(w).Warn("skipping malformed stack frame")
	}
	return frames, nil
}

// Locals returns the local variables of a frame. A nil frame means the
// currently selected frame; otherwise the frame is selected first.
func (s *Session) Locals(ctx context.Context, frame *int) ([]types.Variable, error) {
	if err := s.requireStopped(); err != nil {
		return nil, err
	}

	if frame != nil {
		if _, err := s.run(ctx, fmt.Sprintf("-stack-select-frame %d", *frame)); err != nil {
			return nil, err
		}
	}

	const cmd = "-stack-list-variables --simple-values"
	r, err := s.run(ctx, cmd)
	if err != nil {
		return nil, err
	}

	vars, warnings, err := mi.DecodeVariables(r.Fields)
	if err != nil {
		return nil, errors.DecodeFailed(cmd, err)
	}
	for _, w := range warnings {
		s.log.WithError(w).Warn("skipping malformed variable entry")
	}
	return vars, nil
}

// RegisterNames returns the architecture's register names, cached for the
// session's lifetime. Slot positions match register numbers, so unnamed
// slots stay in place as empty strings.
func (s *Session) RegisterNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	cached := s.regNames
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	const cmd = "-data-list-register-names"
	r, err := s.run(ctx, cmd)
	if err != nil {
		return nil, err
	}

	names, err := mi.DecodeRegisterNames(r.Fields)
	if err != nil {
		return nil, errors.DecodeFailed(cmd, err)
	}

	s.mu.Lock()
	s.regNames = names
	s.mu.Unlock()
	return names, nil
}

// Registers returns the current register values in hex, joined with their
// names. Registers in unnamed slots are omitted; a non-empty filter keeps
// only names containing it.
func (s *Session) Registers(ctx context.Context, filter string) ([]types.Register, error) {
	if err := s.requireStopped(); err != nil {
		return nil, err
	}

	names, err := s.RegisterNames(ctx)
	if err != nil {
		return nil, err
	}

	const cmd = "-data-list-register-values x"
	r, err := s.run(ctx, cmd)
	if err != nil {
		return nil, err
	}

	values, warnings, err := mi.DecodeRegisterValues(r.Fields)
	if err != nil {
		return nil, errors.DecodeFailed(cmd, err)
	}
	for _, w := range warnings {
		s.log.WithError(w).Warn("skipping malformed register entry")
	}

	regs := make([]types.Register, 0, len(values))
	for _, v := range values {
		if v.Number < 0 || v.Number >= len(names) || names[v.Number] == "" {
			continue
		}
		if filter != "" && !strings.Contains(names[v.Number], filter) {
			continue
		}
		regs = append(regs, types.Register{Name: names[v.Number], Value: v.Value})
	}
	return regs, nil
}

// ReadMemory reads count bytes from the target starting at address, which
// may be any gdb address expression. A non-zero offset is applied relative
// to the address.
func (s *Session) ReadMemory(ctx context.Context, address string, count int, offset int64) (types.MemoryBlock, error) {
	if err := s.requireStopped(); err != nil {
		return types.MemoryBlock{}, err
	}
	if count <= 0 {
		return types.MemoryBlock{}, errors.InvalidParameter("count", count, "a positive byte count")
	}

	var cmd string
	if offset != 0 {
		cmd = fmt.Sprintf("-data-read-memory-bytes -o %d %s %d", offset, address, count)
	} else {
		cmd = fmt.Sprintf("-data-read-memory-bytes %s %d", address, count)
	}

	r, err := s.run(ctx, cmd)
	if err != nil {
		return types.MemoryBlock{}, err
	}

	block, err := mi.DecodeMemoryBlock(r.Fields, count)
	if err != nil {
		return types.MemoryBlock{}, errors.DecodeFailed(cmd, err).WithDetails("address", address)
	}
	return block, nil
}

// Breakpoints returns the session's breakpoint mirror without querying the
// backend. Useful for status snapshots; ListBreakpoints refreshes it.
func (s *Session) Breakpoints() []types.Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bps := make([]types.Breakpoint, 0, len(s.breakpoints))
	for _, bp := range s.breakpoints {
		bps = append(bps, bp)
	}
	return bps
}

// requireStopped gates inspection and stepping commands on a stopped
// target; issuing them while the target runs would just stall until the
// command timeout.
func (s *Session) requireStopped() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status.Terminal() {
		if s.termErr != nil {
			return s.termErr
		}
		return errors.SessionTerminated(s.ID)
	}
	if s.status != types.SessionStatusStopped {
		return errors.InvalidState(s.ID, string(s.status), string(types.SessionStatusStopped))
	}
	return nil
}
