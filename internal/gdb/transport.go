package gdb

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ctagard/gdb-mcp/internal/logflags"
	"github.com/ctagard/gdb-mcp/internal/mi"
)

// transport is the per-session line reader/writer over the backend's pipes.
// Writes are mutex-serialized so command lines never interleave; reading
// happens on a single goroutine driving readLoop.
type transport struct {
	out io.Writer
	in  *bufio.Reader
	wmu sync.Mutex
}

func newTransport(out io.Writer, in io.Reader) *transport {
	return &transport{
		out: out,
		in:  bufio.NewReader(in),
	}
}

// writeLine writes one newline-terminated command line as a single write.
// A write error means the backend is gone; callers treat it as session-fatal.
func (t *transport) writeLine(line string) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	if wire := logflags.MIWire(); wire != nil {
		wire.Debugf("-> %s", line)
	}
	if _, err := io.WriteString(t.out, line+"\n"); err != nil {
		return fmt.Errorf("transport write failed: %w", err)
	}
	return nil
}

// readLoop reads lines until end-of-stream, parses each into a Record and
// hands it to handle. Lines that fail to parse are recoverable unless they
// affect result framing: an unparseable tokened or result line means the
// correlator's token table can no longer be trusted, so the loop stops and
// returns the parse error. A nil return means the pipe closed.
func (t *transport) readLoop(handle func(mi.Record), malformed func(error)) error {
	for {
		line, err := t.in.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			if fatal := t.consumeLine(line, handle, malformed); fatal != nil {
				return fatal
			}
		}
		if err != nil {
			// io.EOF and closed-pipe errors both mean the backend is gone.
			return nil
		}
	}
}

func (t *transport) consumeLine(line string, handle func(mi.Record), malformed func(error)) error {
	if line == "" || strings.TrimSpace(line) == "(gdb)" {
		// The MI prompt is framing noise, not a record.
		return nil
	}
	if wire := logflags.MIWire(); wire != nil {
		wire.Debugf("<- %s", line)
	}

	rec, err := mi.ParseRecord(line)
	if err != nil {
		if resultFraming(line) {
			return err
		}
		malformed(err)
		return nil
	}
	handle(rec)
	return nil
}

// resultFraming reports whether a raw line claims to be a result record,
// in which case failing to parse it is session-fatal.
func resultFraming(line string) bool {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i < len(line) && line[i] == '^'
}
