package gdb

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ctagard/gdb-mcp/internal/mi"
	"github.com/ctagard/gdb-mcp/pkg/types"
)

// dispatcher routes async and stream records to the session's stop snapshot
// and to external subscribers. Delivery to subscribers is best-effort and
// never blocks the transport reader loop.
type dispatcher struct {
	mu         sync.Mutex
	stopReason string
	stopFrame  *types.StackFrame
	subs       map[int]chan mi.Record
	nextSub    int

	onStatus func(types.SessionStatus)
	log      *logrus.Entry
}

func newDispatcher(onStatus func(types.SessionStatus), log *logrus.Entry) *dispatcher {
	return &dispatcher{
		subs:     make(map[int]chan mi.Record),
		onStatus: onStatus,
		log:      log,
	}
}

// dispatch consumes one untokened record from the reader loop.
func (d *dispatcher) dispatch(rec mi.Record) {
	switch r := rec.(type) {
	case *mi.Async:
		if r.Class == mi.AsyncExec {
			d.execEvent(r)
		} else {
			d.log.WithFields(logrus.Fields{"class": r.Class, "event": r.Event}).Debug("async event")
		}
	case *mi.Stream:
		d.log.WithFields(logrus.Fields{"kind": r.Kind}).Debug(r.Text)
	}
	d.fanOut(rec)
}

// execEvent updates the stop snapshot from *stopped / *running records.
func (d *dispatcher) execEvent(r *mi.Async) {
	switch r.Event {
	case "stopped":
		reason := r.Fields.GetString("reason")
		var frame *types.StackFrame
		if ft := r.Fields.GetTuple("frame"); ft != nil {
			f := mi.DecodeFrame(ft)
			frame = &f
		}

		d.mu.Lock()
		d.stopReason = reason
		d.stopFrame = frame
		d.mu.Unlock()

		d.log.WithField("reason", reason).Debug("target stopped")
		// Inferior exit ("exited-normally" etc.) still leaves gdb alive,
		// so the session stays Stopped rather than Exited.
		d.onStatus(types.SessionStatusStopped)
	case "running":
		d.mu.Lock()
		d.stopReason = ""
		d.stopFrame = nil
		d.mu.Unlock()
		d.onStatus(types.SessionStatusRunning)
	}
}

// fanOut forwards the record to every subscriber, dropping it for any
// subscriber whose buffer is full.
func (d *dispatcher) fanOut(rec mi.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, ch := range d.subs {
		select {
		case ch <- rec:
		default:
			d.log.WithField("subscriber", id).Debug("subscriber buffer full, dropping record")
		}
	}
}

// subscribe registers an external consumer of async/stream records.
// The returned cancel func must be called to release the channel.
func (d *dispatcher) subscribe(buffer int) (<-chan mi.Record, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSub
	d.nextSub++
	ch := make(chan mi.Record, buffer)
	d.subs[id] = ch

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// stopState returns the latest stop reason and frame snapshot.
func (d *dispatcher) stopState() (string, *types.StackFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopReason, d.stopFrame
}
