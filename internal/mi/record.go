// Package mi implements the GDB Machine Interface (GDB/MI) wire format.
//
// GDB/MI is a line-oriented text protocol used to control gdb
// programmatically. This package provides:
//   - Record types: Result, Async, Stream - the tagged record variants
//   - Value types: Const, Tuple, List - the three field-tree shapes
//   - ParseRecord: single-pass decoder from a raw line to a typed Record
//   - Decoders: field trees to typed domain objects (breakpoints, frames, ...)
//
// The protocol is described at:
// https://sourceware.org/gdb/current/onlinedocs/gdb.html/GDB_002fMI.html
//
// Parsing happens exactly once, at this boundary. Everything above it works
// with the tagged forms; raw protocol text never leaks into the engine.
package mi

import "strings"

// Status is the outcome class of a Result record.
type Status string

const (
	StatusDone    Status = "done"
	StatusRunning Status = "running"
	StatusError   Status = "error"
	StatusExit    Status = "exit"
)

// AsyncClass distinguishes the three async record kinds.
type AsyncClass string

const (
	AsyncExec   AsyncClass = "exec"   // *event: execution state changes
	AsyncNotify AsyncClass = "notify" // =event: environment changes
	AsyncStatus AsyncClass = "status" // +event: progress reports
)

// StreamKind distinguishes the three stream record kinds.
type StreamKind string

const (
	StreamConsole StreamKind = "console" // ~"text": console output for the user
	StreamTarget  StreamKind = "target"  // @"text": output from the target program
	StreamLog     StreamKind = "log"     // &"text": gdb internal log echo
)

// Record is a parsed protocol line: one of *Result, *Async, *Stream.
type Record interface {
	record()
}

// Result is a token-correlated record reporting the outcome of a command.
type Result struct {
	Token  int // 0 when the backend omitted the token
	Status Status
	Fields Tuple
}

// Async is an untokened record reporting a spontaneous backend event.
type Async struct {
	Class  AsyncClass
	Event  string // e.g. "stopped", "thread-group-added"
	Fields Tuple
}

// Stream is an untokened record carrying raw text for display only.
type Stream struct {
	Kind StreamKind
	Text string
}

func (*Result) record() {}
func (*Async) record()  {}
func (*Stream) record() {}

// Value is a node of a record's field tree: Const, Tuple or List.
// These are the protocol's only three shapes.
type Value interface {
	value()
	appendTo(sb *strings.Builder)
}

// Const is a scalar string value.
type Const string

// Field is one key=value pair of a tuple. Order is preserved.
type Field struct {
	Key   string
	Value Value
}

// Tuple is an ordered mapping from string keys to values.
type Tuple []Field

// List is an ordered sequence of values.
type List []Value

func (Const) value() {}
func (Tuple) value() {}
func (List) value()  {}

// Get returns the value for key, or nil if the key is absent.
func (t Tuple) Get(key string) Value {
	for _, f := range t {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// GetString returns the scalar value for key, or "" if the key is absent
// or not a Const.
func (t Tuple) GetString(key string) string {
	if c, ok := t.Get(key).(Const); ok {
		return string(c)
	}
	return ""
}

// GetTuple returns the tuple value for key, or nil.
func (t Tuple) GetTuple(key string) Tuple {
	if tup, ok := t.Get(key).(Tuple); ok {
		return tup
	}
	return nil
}

// GetList returns the list value for key, or nil.
func (t Tuple) GetList(key string) List {
	if l, ok := t.Get(key).(List); ok {
		return l
	}
	return nil
}
