package gdb

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ctagard/gdb-mcp/internal/errors"
	"github.com/ctagard/gdb-mcp/internal/mi"
	"github.com/ctagard/gdb-mcp/pkg/types"
)

// fakeBackend stands in for a gdb process: it reads command lines the
// session writes and lets tests inject response lines.
type fakeBackend struct {
	session  *Session
	commands chan string

	toSession   *io.PipeWriter
	fromSession *io.PipeReader
}

func newFakeBackend(t *testing.T, timeout time.Duration) *fakeBackend {
	t.Helper()

	cmdR, cmdW := io.Pipe()
	respR, respW := io.Pipe()

	fb := &fakeBackend{
		session:     newSession("test-session", nil, cmdW, respR, timeout),
		commands:    make(chan string, 128),
		toSession:   respW,
		fromSession: cmdR,
	}
	fb.session.start()

	go func() {
		scanner := bufio.NewScanner(cmdR)
		for scanner.Scan() {
			fb.commands <- scanner.Text()
		}
		close(fb.commands)
	}()

	t.Cleanup(func() {
		fb.toSession.Close()
		fb.fromSession.Close()
		fb.session.Close()
	})
	return fb
}

// reply injects one response line followed by the MI prompt.
func (fb *fakeBackend) reply(t *testing.T, line string) {
	t.Helper()
	if _, err := io.WriteString(fb.toSession, line+"\n(gdb)\n"); err != nil {
		t.Fatalf("failed to inject response: %v", err)
	}
}

// nextCommand waits for the session to write a command line.
func (fb *fakeBackend) nextCommand(t *testing.T) string {
	t.Helper()
	select {
	case cmd := <-fb.commands:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a command line")
		return ""
	}
}

// commandToken splits "42-break-list" into its token and command text.
func commandToken(t *testing.T, line string) (int, string) {
	t.Helper()
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 {
		t.Fatalf("command line %q carries no token", line)
	}
	var token int
	fmt.Sscanf(line[:i], "%d", &token)
	return token, line[i:]
}

func waitStatus(t *testing.T, s *Session, want types.SessionStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached status %s, still %s", want, s.Status())
}

// TestSession_SendReceivesResult verifies the basic command/result cycle.
func TestSession_SendReceivesResult(t *testing.T) {
	fb := newFakeBackend(t, 2*time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		cmd := fb.nextCommand(t)
		token, text := commandToken(t, cmd)
		if text != "-break-list" {
			t.Errorf("expected -break-list, got %q", text)
		}
		fb.reply(t, fmt.Sprintf(`%d^done,BreakpointTable={body=[]}`, token))
	}()

	r, err := fb.session.Send(context.Background(), "-break-list")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if r.Status != "done" {
		t.Errorf("expected ^done, got %s", r.Status)
	}
	<-done
}

// TestSession_OutOfOrderResults verifies that pipelined commands receive
// their own results regardless of completion order.
func TestSession_OutOfOrderResults(t *testing.T) {
	fb := newFakeBackend(t, 5*time.Second)
	const n = 100

	// Collect all command tokens first, then answer in reverse order with a
	// payload naming the token so mixups are detectable.
	go func() {
		tokens := make([]int, 0, n)
		for i := 0; i < n; i++ {
			token, _ := commandToken(t, fb.nextCommand(t))
			tokens = append(tokens, token)
		}
		for i := len(tokens) - 1; i >= 0; i-- {
			fb.reply(t, fmt.Sprintf(`%d^done,echo="%d"`, tokens[i], tokens[i]))
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := fb.session.Send(context.Background(), "-data-evaluate-expression 1")
			if err != nil {
				errs <- err
				return
			}
			if echo := r.Fields.GetString("echo"); echo != fmt.Sprintf("%d", r.Token) {
				errs <- fmt.Errorf("token %d received result for %s", r.Token, echo)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// TestSession_CommandTimeout verifies an unanswered command times out while
// the session stays usable, and that the late result is discarded.
func TestSession_CommandTimeout(t *testing.T) {
	fb := newFakeBackend(t, 50*time.Millisecond)

	cmdCh := make(chan string, 1)
	go func() { cmdCh <- fb.nextCommand(t) }()

	_, err := fb.session.Send(context.Background(), "-exec-continue")
	if !errors.IsCode(err, errors.CodeCommandTimeout) {
		t.Fatalf("expected COMMAND_TIMEOUT, got %v", err)
	}

	// Deliver the stale result, then a fresh command must still work.
	staleToken, _ := commandToken(t, <-cmdCh)
	fb.reply(t, fmt.Sprintf("%d^done", staleToken))

	go func() {
		token, _ := commandToken(t, fb.nextCommand(t))
		fb.reply(t, fmt.Sprintf("%d^done", token))
	}()
	if _, err := fb.session.Send(context.Background(), "-break-list"); err != nil {
		t.Fatalf("session unusable after timeout: %v", err)
	}
}

// TestSession_BackendExitFailsWaiters verifies that pipe closure fails all
// outstanding commands and moves the session to a terminal state.
func TestSession_BackendExitFailsWaiters(t *testing.T) {
	fb := newFakeBackend(t, 10*time.Second)
	const n = 50

	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fb.session.Send(context.Background(), "-exec-step")
			errCh <- err
		}()
	}
	for i := 0; i < n; i++ {
		fb.nextCommand(t)
	}

	fb.toSession.Close()

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err == nil {
			t.Fatal("expected all waiters to fail after backend exit")
		}
		if !errors.IsCode(err, errors.CodeProcessExited) {
			t.Errorf("expected PROCESS_EXITED, got %v", err)
		}
	}

	waitStatus(t, fb.session, types.SessionStatusExited)

	if _, err := fb.session.Send(context.Background(), "-break-list"); err == nil {
		t.Error("expected error sending on an exited session")
	}
}

// TestSession_CloseCancelsWaiters verifies Close fails pending commands and
// is safe to call twice.
func TestSession_CloseCancelsWaiters(t *testing.T) {
	fb := newFakeBackend(t, 10*time.Second)
	const n = 50

	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := fb.session.Send(context.Background(), "-exec-step")
			errCh <- err
		}()
	}
	for i := 0; i < n; i++ {
		fb.nextCommand(t)
	}

	fb.session.Close()
	fb.session.Close()

	for i := 0; i < n; i++ {
		if err := <-errCh; !errors.IsCode(err, errors.CodeSessionTerminated) {
			t.Errorf("expected SESSION_TERMINATED, got %v", err)
		}
	}
	if fb.session.Status() != types.SessionStatusClosed {
		t.Errorf("expected closed status, got %s", fb.session.Status())
	}
}

// TestSession_StoppedEventUpdatesState verifies *stopped and *running async
// records drive the session's run state and stop snapshot.
func TestSession_StoppedEventUpdatesState(t *testing.T) {
	fb := newFakeBackend(t, time.Second)

	fb.reply(t, `*stopped,reason="breakpoint-hit",frame={addr="0x401126",func="main",file="main.c",line="5"}`)
	waitStatus(t, fb.session, types.SessionStatusStopped)

	info := fb.session.Info()
	if info.StopReason != "breakpoint-hit" {
		t.Errorf("expected stop reason breakpoint-hit, got %q", info.StopReason)
	}
	if info.StopFrame == nil || info.StopFrame.Func != "main" || info.StopFrame.Line != 5 {
		t.Errorf("unexpected stop frame: %+v", info.StopFrame)
	}

	fb.reply(t, `*running,thread-id="all"`)
	waitStatus(t, fb.session, types.SessionStatusRunning)

	info = fb.session.Info()
	if info.StopReason != "" || info.StopFrame != nil {
		t.Errorf("expected stop snapshot cleared, got %+v", info)
	}
}

// TestSession_MalformedLineIsRecoverable verifies a garbled non-result line
// is skipped while the session keeps working.
func TestSession_MalformedLineIsRecoverable(t *testing.T) {
	fb := newFakeBackend(t, 2*time.Second)

	fb.reply(t, `=thread-created,id=`)

	go func() {
		token, _ := commandToken(t, fb.nextCommand(t))
		fb.reply(t, fmt.Sprintf("%d^done", token))
	}()
	if _, err := fb.session.Send(context.Background(), "-break-list"); err != nil {
		t.Fatalf("session unusable after malformed line: %v", err)
	}
}

// TestSession_BrokenResultFramingIsFatal verifies an unparseable result
// line kills the session with a protocol error.
func TestSession_BrokenResultFramingIsFatal(t *testing.T) {
	fb := newFakeBackend(t, 10*time.Second)

	fb.reply(t, `7^done,msg="unterminated`)
	waitStatus(t, fb.session, types.SessionStatusExited)

	_, err := fb.session.Send(context.Background(), "-break-list")
	if !errors.IsCode(err, errors.CodeProtocolError) {
		t.Errorf("expected PROTOCOL_ERROR, got %v", err)
	}
}

// TestSession_Subscribe verifies async and stream records reach subscribers.
func TestSession_Subscribe(t *testing.T) {
	fb := newFakeBackend(t, time.Second)

	ch, cancel := fb.session.Subscribe(8)
	defer cancel()

	fb.reply(t, `~"Reading symbols...\n"`)

	select {
	case rec := <-ch:
		stream, ok := rec.(*mi.Stream)
		if !ok {
			t.Fatalf("expected *mi.Stream, got %T", rec)
		}
		if stream.Text != "Reading symbols...\n" {
			t.Errorf("unexpected stream text: %q", stream.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the stream record")
	}
}

// TestSession_ErrorResultBecomesCommandFailed verifies typed operations
// surface the backend's ^error message.
func TestSession_ErrorResultBecomesCommandFailed(t *testing.T) {
	fb := newFakeBackend(t, 2*time.Second)

	go func() {
		token, _ := commandToken(t, fb.nextCommand(t))
		fb.reply(t, fmt.Sprintf(`%d^error,msg="No executable file specified"`, token))
	}()

	err := fb.session.Start(context.Background())
	if !errors.IsCode(err, errors.CodeCommandFailed) {
		t.Fatalf("expected COMMAND_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "No executable file specified") {
		t.Errorf("backend message lost: %v", err)
	}
}

// TestSession_InspectionRequiresStoppedTarget verifies state gating on
// stepping and inspection operations.
func TestSession_InspectionRequiresStoppedTarget(t *testing.T) {
	fb := newFakeBackend(t, time.Second)

	// Session is Running and the target has not stopped.
	if _, err := fb.session.StackFrames(context.Background()); !errors.IsCode(err, errors.CodeInvalidState) {
		t.Errorf("expected INVALID_STATE for stack frames, got %v", err)
	}
	if err := fb.session.Step(context.Background()); !errors.IsCode(err, errors.CodeInvalidState) {
		t.Errorf("expected INVALID_STATE for step, got %v", err)
	}
}

// TestSession_SetBreakpointUpdatesMirror verifies the breakpoint mirror
// follows insert and delete operations.
func TestSession_SetBreakpointUpdatesMirror(t *testing.T) {
	fb := newFakeBackend(t, 2*time.Second)

	go func() {
		token, text := commandToken(t, fb.nextCommand(t))
		if !strings.HasPrefix(text, "-break-insert") {
			t.Errorf("expected -break-insert, got %q", text)
		}
		fb.reply(t, fmt.Sprintf(`%d^done,bkpt={number="1",enabled="y",file="main.c",line="5",times="0"}`, token))

		token, text = commandToken(t, fb.nextCommand(t))
		if text != "-break-delete 1" {
			t.Errorf("expected -break-delete 1, got %q", text)
		}
		fb.reply(t, fmt.Sprintf("%d^done", token))
	}()

	bp, err := fb.session.SetBreakpoint(context.Background(), "main.c", 5)
	if err != nil {
		t.Fatalf("SetBreakpoint failed: %v", err)
	}
	if bp.Number != 1 || bp.Line != 5 {
		t.Errorf("unexpected breakpoint: %+v", bp)
	}
	if got := fb.session.Breakpoints(); len(got) != 1 {
		t.Fatalf("expected 1 mirrored breakpoint, got %d", len(got))
	}

	if err := fb.session.DeleteBreakpoints(context.Background(), []int{1}); err != nil {
		t.Fatalf("DeleteBreakpoints failed: %v", err)
	}
	if got := fb.session.Breakpoints(); len(got) != 0 {
		t.Errorf("expected empty mirror after delete, got %+v", got)
	}
}

// TestSession_DeleteBreakpointsResyncsOnPartialFailure verifies a rejected
// -break-delete re-queries the backend table so the mirror cannot diverge.
func TestSession_DeleteBreakpointsResyncsOnPartialFailure(t *testing.T) {
	fb := newFakeBackend(t, 2*time.Second)

	go func() {
		token, _ := commandToken(t, fb.nextCommand(t))
		fb.reply(t, fmt.Sprintf(`%d^done,bkpt={number="1",enabled="y",file="main.c",line="5",times="0"}`, token))

		// gdb deletes breakpoint 1 before rejecting the unknown number.
		token, text := commandToken(t, fb.nextCommand(t))
		if text != "-break-delete 1 99" {
			t.Errorf("expected -break-delete 1 99, got %q", text)
		}
		fb.reply(t, fmt.Sprintf(`%d^error,msg="No breakpoint number 99."`, token))

		token, text = commandToken(t, fb.nextCommand(t))
		if text != "-break-list" {
			t.Errorf("expected -break-list after failed delete, got %q", text)
		}
		fb.reply(t, fmt.Sprintf(`%d^done,BreakpointTable={body=[]}`, token))
	}()

	if _, err := fb.session.SetBreakpoint(context.Background(), "main.c", 5); err != nil {
		t.Fatalf("SetBreakpoint failed: %v", err)
	}

	err := fb.session.DeleteBreakpoints(context.Background(), []int{1, 99})
	if !errors.IsCode(err, errors.CodeCommandFailed) {
		t.Fatalf("expected COMMAND_FAILED, got %v", err)
	}
	if got := fb.session.Breakpoints(); len(got) != 0 {
		t.Errorf("expected empty mirror after resync, got %+v", got)
	}
}

// TestSession_SendCancelledContext verifies caller cancellation surfaces as
// a typed error wrapping context.Canceled, leaving the session usable.
func TestSession_SendCancelledContext(t *testing.T) {
	fb := newFakeBackend(t, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fb.session.Send(ctx, "-exec-step")
	if !errors.IsCode(err, errors.CodeCommandCancelled) {
		t.Fatalf("expected COMMAND_CANCELLED, got %v", err)
	}
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in the chain, got %v", err)
	}

	go func() {
		fb.nextCommand(t)
		token, _ := commandToken(t, fb.nextCommand(t))
		fb.reply(t, fmt.Sprintf("%d^done", token))
	}()
	if _, err := fb.session.Send(context.Background(), "-break-list"); err != nil {
		t.Fatalf("session unusable after cancellation: %v", err)
	}
}

// TestSessionManager_SpawnFailure verifies a bad gdb path reports
// GDB_SPAWN_FAILED without registering a session.
func TestSessionManager_SpawnFailure(t *testing.T) {
	sm := NewSessionManager("/nonexistent/gdb-binary", 4, time.Minute, time.Second)
	defer sm.Close()

	_, err := sm.CreateSession(types.CreateSessionRequest{Program: "/bin/true"})
	if !errors.IsCode(err, errors.CodeSpawnFailed) {
		t.Fatalf("expected GDB_SPAWN_FAILED, got %v", err)
	}
	if got := len(sm.ListSessions()); got != 0 {
		t.Errorf("expected no registered sessions, got %d", got)
	}
}

// TestSessionManager_GetSessionNotFound verifies unknown ids are reported.
func TestSessionManager_GetSessionNotFound(t *testing.T) {
	sm := NewSessionManager("gdb", 4, time.Minute, time.Second)
	defer sm.Close()

	_, err := sm.GetSession("no-such-id")
	if !errors.IsCode(err, errors.CodeSessionNotFound) {
		t.Errorf("expected SESSION_NOT_FOUND, got %v", err)
	}
}

// TestSessionManager_CloseSessionIdempotent verifies closing an unknown
// session succeeds.
func TestSessionManager_CloseSessionIdempotent(t *testing.T) {
	sm := NewSessionManager("gdb", 4, time.Minute, time.Second)
	defer sm.Close()

	if err := sm.CloseSession("no-such-id"); err != nil {
		t.Errorf("expected idempotent close, got %v", err)
	}
}
