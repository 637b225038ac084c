package gdb

import (
	"testing"

	"github.com/ctagard/gdb-mcp/internal/logflags"
	"github.com/ctagard/gdb-mcp/internal/mi"
)

// TestCorrelator_TokensAreUnique verifies tokens increase and never repeat.
func TestCorrelator_TokensAreUnique(t *testing.T) {
	c := newCorrelator(logflags.Session())

	seen := make(map[int]bool)
	for i := 0; i < 100; i++ {
		token, ch := c.register()
		if token == 0 || ch == nil {
			t.Fatal("register failed on a live correlator")
		}
		if seen[token] {
			t.Fatalf("token %d issued twice", token)
		}
		seen[token] = true
	}
	if c.pending() != 100 {
		t.Errorf("expected 100 pending waiters, got %d", c.pending())
	}
}

// TestCorrelator_ResolveDelivers verifies a result reaches its waiter and
// the waiter entry is removed.
func TestCorrelator_ResolveDelivers(t *testing.T) {
	c := newCorrelator(logflags.Session())
	token, ch := c.register()

	c.resolve(&mi.Result{Token: token, Status: mi.StatusDone})

	select {
	case r := <-ch:
		if r.Token != token {
			t.Errorf("expected token %d, got %d", token, r.Token)
		}
	default:
		t.Fatal("result never delivered")
	}
	if c.pending() != 0 {
		t.Errorf("expected waiter removed, %d pending", c.pending())
	}
}

// TestCorrelator_UnknownTokenDiscarded verifies resolve tolerates results
// for tokens nobody waits on.
func TestCorrelator_UnknownTokenDiscarded(t *testing.T) {
	c := newCorrelator(logflags.Session())
	c.resolve(&mi.Result{Token: 999, Status: mi.StatusDone})
	if c.pending() != 0 {
		t.Errorf("expected no waiters, got %d", c.pending())
	}
}

// TestCorrelator_CancelBurnsToken verifies a cancelled token's late result
// is discarded.
func TestCorrelator_CancelBurnsToken(t *testing.T) {
	c := newCorrelator(logflags.Session())
	token, ch := c.register()

	c.cancel(token)
	c.resolve(&mi.Result{Token: token, Status: mi.StatusDone})

	select {
	case r := <-ch:
		t.Errorf("cancelled waiter received %+v", r)
	default:
	}
}

// TestCorrelator_DrainStopsRegistration verifies drain clears waiters and
// refuses new ones.
func TestCorrelator_DrainStopsRegistration(t *testing.T) {
	c := newCorrelator(logflags.Session())
	for i := 0; i < 5; i++ {
		c.register()
	}

	if n := c.drain(); n != 5 {
		t.Errorf("expected 5 drained waiters, got %d", n)
	}
	if token, ch := c.register(); token != 0 || ch != nil {
		t.Error("expected registration refused after drain")
	}
}
