package gdb

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ctagard/gdb-mcp/internal/errors"
	"github.com/ctagard/gdb-mcp/internal/logflags"
	"github.com/ctagard/gdb-mcp/internal/mi"
	"github.com/ctagard/gdb-mcp/pkg/types"
)

// terminateGrace is how long Terminate waits for gdb to exit on its own
// before escalating to a process-group kill.
const terminateGrace = 3 * time.Second

// Session represents one active debug session: a supervised gdb process
// plus its protocol-engine state. Callers hold only the session id; the
// SessionManager is the sole owner of the Session itself.
type Session struct {
	ID        string
	Program   string
	CreatedAt time.Time

	proc   *Process
	tr     *transport
	corr   *correlator
	events *dispatcher

	mu      sync.RWMutex
	status  types.SessionStatus
	termErr error // terminal error delivered to drained waiters

	// breakpoints mirrors the backend's table; the backend is authoritative.
	breakpoints map[int]types.Breakpoint
	// regNames caches -data-list-register-names; register numbers index it.
	regNames []string

	ctx            context.Context
	cancel         context.CancelFunc
	commandTimeout time.Duration
	log            *logrus.Entry
}

// newSession wires a session around an already-started transport. Used by
// CreateSession with real process pipes and by tests with in-memory pipes.
func newSession(id string, proc *Process, out io.Writer, in io.Reader, commandTimeout time.Duration) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	log := logflags.Session().WithField("session", id)

	s := &Session{
		ID:             id,
		CreatedAt:      time.Now(),
		proc:           proc,
		tr:             newTransport(out, in),
		corr:           newCorrelator(log),
		status:         types.SessionStatusCreated,
		breakpoints:    make(map[int]types.Breakpoint),
		ctx:            ctx,
		cancel:         cancel,
		commandTimeout: commandTimeout,
		log:            log,
	}
	s.events = newDispatcher(s.setRunState, logflags.Events().WithField("session", id))
	return s
}

// start launches the reader loop and the exit watcher, then marks the
// session Running.
func (s *Session) start() {
	s.setStatus(types.SessionStatusRunning)
	go s.readLoop()
	if s.proc != nil {
		go func() {
			<-s.proc.ExitNotify()
			if err := s.proc.ExitErr(); err != nil {
				s.log.WithError(err).Warn("gdb process exited abnormally")
			}
			s.shutdown(types.SessionStatusExited, errors.ProcessExited(s.ID).WithCause(s.proc.ExitErr()))
		}()
	}
}

// readLoop drives the transport until the pipe closes or framing breaks.
// Every complete record is routed here: results to the correlator,
// everything else to the event dispatcher.
func (s *Session) readLoop() {
	err := s.tr.readLoop(
		func(rec mi.Record) {
			if r, ok := rec.(*mi.Result); ok {
				s.corr.resolve(r)
				return
			}
			s.events.dispatch(rec)
		},
		func(err error) {
			s.log.WithError(err).Warn("skipping malformed record")
		},
	)
	if err != nil {
		s.shutdown(types.SessionStatusExited, errors.ProtocolError(err))
		return
	}
	s.shutdown(types.SessionStatusExited, errors.ProcessExited(s.ID))
}

// Send issues one MI command and waits for its token-matched result. The
// ^error status is returned as a Result, not an error: callers decide
// whether backend rejection is an application failure.
func (s *Session) Send(ctx context.Context, command string) (*mi.Result, error) {
	if err := s.liveErr(); err != nil {
		return nil, err
	}

	token, ch := s.corr.register()
	if token == 0 {
		return nil, s.terminalErr()
	}

	if err := s.tr.writeLine(fmt.Sprintf("%d%s", token, command)); err != nil {
		// A failed write means the backend is dead; the exit watcher will
		// drain everything, this call just reports its own failure.
		s.corr.cancel(token)
		s.log.WithError(err).Error("command write failed")
		return nil, errors.ProcessExited(s.ID).WithCause(err)
	}

	timer := time.NewTimer(s.commandTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r, nil
	case <-timer.C:
		s.corr.cancel(token)
		return nil, errors.CommandTimeout(command, s.commandTimeout.Seconds())
	case <-ctx.Done():
		s.corr.cancel(token)
		return nil, errors.Wrap(errors.CodeCommandCancelled,
			fmt.Sprintf("command %q cancelled before a result arrived", command),
			"The caller's context was cancelled. The session is still alive.",
			ctx.Err())
	case <-s.ctx.Done():
		return nil, s.terminalErr()
	}
}

// run issues a command and converts ^error into a CommandFailed error,
// for operations that have no use for an error-status payload.
func (s *Session) run(ctx context.Context, command string) (*mi.Result, error) {
	r, err := s.Send(ctx, command)
	if err != nil {
		return nil, err
	}
	if r.Status == mi.StatusError {
		return nil, errors.CommandFailed(command, mi.ErrorMessage(r))
	}
	return r, nil
}

// shutdown moves the session to a terminal state exactly once, cancelling
// every outstanding and future waiter with the given terminal error.
func (s *Session) shutdown(status types.SessionStatus, termErr error) {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.termErr = termErr
	s.mu.Unlock()

	dropped := s.corr.drain()
	s.cancel()
	if dropped > 0 {
		s.log.WithField("waiters", dropped).Info("cancelled outstanding commands")
	}

	if s.proc != nil {
		if err := s.proc.Terminate(terminateGrace); err != nil {
			s.log.WithError(err).Warn("failed to terminate gdb process")
		}
	}
	s.log.WithField("status", status).Info("session ended")
}

// Close terminates the session. Safe to call on an already-terminal
// session; the first close wins.
func (s *Session) Close() {
	s.shutdown(types.SessionStatusClosed, errors.SessionTerminated(s.ID))
}

func (s *Session) setStatus(status types.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.Terminal() {
		s.status = status
	}
}

// setRunState is the dispatcher's Running/Stopped hook; terminal states
// are owned by shutdown and never overwritten here.
func (s *Session) setRunState(status types.SessionStatus) {
	s.setStatus(status)
}

// Status returns the current lifecycle state.
func (s *Session) Status() types.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) liveErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status.Terminal() {
		if s.termErr != nil {
			return s.termErr
		}
		return errors.SessionTerminated(s.ID)
	}
	return nil
}

func (s *Session) terminalErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.termErr != nil {
		return s.termErr
	}
	return errors.SessionTerminated(s.ID)
}

// Subscribe registers an external consumer of this session's async and
// stream records. Delivery is best-effort; a slow consumer loses records
// rather than stalling the reader loop.
func (s *Session) Subscribe(buffer int) (<-chan mi.Record, func()) {
	return s.events.subscribe(buffer)
}

// Info returns a status snapshot including the latest stop state.
func (s *Session) Info() types.SessionInfo {
	reason, frame := s.events.stopState()
	info := types.SessionInfo{
		SessionID:  s.ID,
		Status:     s.Status(),
		Program:    s.Program,
		CreatedAt:  s.CreatedAt,
		StopReason: reason,
		StopFrame:  frame,
	}
	if s.proc != nil {
		info.PID = s.proc.PID()
	}
	return info
}

// SessionManager manages multiple debug sessions. The id-to-session table
// is the only cross-session shared structure; everything else is owned by
// the individual sessions.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	gdbPath        string
	maxSessions    int
	sessionTimeout time.Duration
	commandTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	log    *logrus.Entry
}

// NewSessionManager creates a new session manager
func NewSessionManager(gdbPath string, maxSessions int, sessionTimeout, commandTimeout time.Duration) *SessionManager {
	ctx, cancel := context.WithCancel(context.Background())
	sm := &SessionManager{
		sessions:       make(map[string]*Session),
		gdbPath:        gdbPath,
		maxSessions:    maxSessions,
		sessionTimeout: sessionTimeout,
		commandTimeout: commandTimeout,
		ctx:            ctx,
		cancel:         cancel,
		log:            logflags.Session().WithField("layer", "registry"),
	}

	// Start cleanup goroutine
	go sm.cleanupLoop()

	return sm
}

// cleanupLoop periodically closes sessions that have exceeded the timeout
func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-sm.ctx.Done():
			return
		case <-ticker.C:
			sm.cleanupExpiredSessions()
		}
	}
}

func (sm *SessionManager) cleanupExpiredSessions() {
	now := time.Now()
	for _, session := range sm.ListSessions() {
		if now.Sub(session.CreatedAt) > sm.sessionTimeout {
			sm.log.WithField("session", session.ID).Info("closing expired session")
			_ = sm.CloseSession(session.ID)
		}
	}
}

// CreateSession spawns a gdb backend and registers a new session around it.
// A spawn failure is reported without registering a half-initialized entry.
func (sm *SessionManager) CreateSession(req types.CreateSessionRequest) (*Session, error) {
	sm.mu.Lock()
	if len(sm.sessions) >= sm.maxSessions {
		sm.mu.Unlock()
		return nil, errors.SessionLimitReached(sm.maxSessions)
	}
	sm.mu.Unlock()

	gdbPath := req.GDBPath
	if gdbPath == "" {
		gdbPath = sm.gdbPath
	}

	proc, err := Spawn(gdbPath, req)
	if err != nil {
		return nil, errors.SpawnFailed(gdbPath, err)
	}

	session := newSession(uuid.New().String(), proc, proc.Stdin(), proc.Stdout(), sm.commandTimeout)
	session.Program = req.Program
	session.start()

	sm.mu.Lock()
	if len(sm.sessions) >= sm.maxSessions {
		sm.mu.Unlock()
		session.Close()
		return nil, errors.SessionLimitReached(sm.maxSessions)
	}
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	sm.log.WithFields(logrus.Fields{"session": session.ID, "pid": proc.PID()}).Info("session created")
	return session, nil
}

// GetSession retrieves a session by ID
func (sm *SessionManager) GetSession(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[id]
	if !ok {
		return nil, errors.SessionNotFound(id)
	}
	return session, nil
}

// ListSessions returns all active sessions
func (sm *SessionManager) ListSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// CloseSession terminates a session and removes it from the registry.
// Idempotent: closing an unknown or already-closed id is a no-op success.
func (sm *SessionManager) CloseSession(id string) error {
	sm.mu.Lock()
	session, ok := sm.sessions[id]
	if ok {
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()

	if !ok {
		return nil
	}
	session.Close()
	return nil
}

// Close shuts down the session manager, draining every session.
func (sm *SessionManager) Close() {
	sm.cancel()

	sm.mu.Lock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}
	sm.sessions = make(map[string]*Session)
	sm.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}
