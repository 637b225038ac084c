package gdb

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ctagard/gdb-mcp/internal/mi"
)

// correlator matches result records to the callers that sent the
// corresponding commands. Tokens are monotonically increasing and never
// reused within a session; each token has at most one waiter. Results may
// arrive in any order relative to other tokens.
type correlator struct {
	mu      sync.Mutex
	next    int
	waiters map[int]chan *mi.Result
	drained bool

	log *logrus.Entry
}

func newCorrelator(log *logrus.Entry) *correlator {
	return &correlator{
		next:    1,
		waiters: make(map[int]chan *mi.Result),
		log:     log,
	}
}

// register allocates the next token and its waiter channel. The channel is
// buffered so resolve never blocks the reader loop. After drain, no new
// waiters are accepted and the zero token signals the session is done.
func (c *correlator) register() (int, <-chan *mi.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drained {
		return 0, nil
	}
	token := c.next
	c.next++
	ch := make(chan *mi.Result, 1)
	c.waiters[token] = ch
	return token, ch
}

// resolve delivers a result to whichever caller is waiting on its token.
// A result for an unknown token (already timed out, or unsolicited) is
// matched, logged and discarded rather than treated as an error.
func (c *correlator) resolve(r *mi.Result) {
	c.mu.Lock()
	ch, ok := c.waiters[r.Token]
	if ok {
		delete(c.waiters, r.Token)
	}
	c.mu.Unlock()

	if !ok {
		c.log.WithFields(logrus.Fields{"token": r.Token, "status": r.Status}).
			Debug("discarding result with no waiter")
		return
	}
	ch <- r
}

// cancel removes a waiter whose caller gave up (timeout). The token stays
// burned; its eventual result will be discarded by resolve.
func (c *correlator) cancel(token int) {
	c.mu.Lock()
	delete(c.waiters, token)
	c.mu.Unlock()
}

// drain removes every outstanding waiter and refuses new registrations.
// Callers blocked in await are unblocked by the session context, not here;
// drain only guarantees late results can never reach a stale channel.
func (c *correlator) drain() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.waiters)
	c.waiters = make(map[int]chan *mi.Result)
	c.drained = true
	return n
}

// pending returns the number of outstanding waiters.
func (c *correlator) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
