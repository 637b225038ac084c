package mi

import (
	"fmt"
	"strings"
)

// MalformedRecordError reports a protocol line that does not match the
// GDB/MI grammar. The offending line is carried for diagnostics.
type MalformedRecordError struct {
	Line   string
	Pos    int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed MI record at column %d: %s: %q", e.Pos, e.Reason, e.Line)
}

// ParseRecord decodes one newline-stripped protocol line into a Record.
// It never panics and never drops a line silently: every input yields
// either a Record or a *MalformedRecordError.
func ParseRecord(line string) (Record, error) {
	p := &parser{line: line, rest: line}

	token, hasToken := p.token()

	if len(p.rest) == 0 {
		return nil, p.fail("missing record class")
	}
	class := p.rest[0]
	p.advance(1)

	switch class {
	case '^':
		return p.result(token)
	case '*':
		return p.async(AsyncExec)
	case '=':
		return p.async(AsyncNotify)
	case '+':
		return p.async(AsyncStatus)
	case '~':
		return p.stream(StreamConsole, hasToken)
	case '@':
		return p.stream(StreamTarget, hasToken)
	case '&':
		return p.stream(StreamLog, hasToken)
	default:
		return nil, p.fail(fmt.Sprintf("unknown record class %q", class))
	}
}

type parser struct {
	line string
	rest string
}

func (p *parser) pos() int { return len(p.line) - len(p.rest) }

func (p *parser) advance(n int) { p.rest = p.rest[n:] }

func (p *parser) fail(reason string) *MalformedRecordError {
	return &MalformedRecordError{Line: p.line, Pos: p.pos(), Reason: reason}
}

// token consumes an optional leading decimal command token.
func (p *parser) token() (int, bool) {
	n := 0
	for n < len(p.rest) && p.rest[n] >= '0' && p.rest[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, false
	}
	token := 0
	for _, c := range p.rest[:n] {
		token = token*10 + int(c-'0')
	}
	p.advance(n)
	return token, true
}

func (p *parser) result(token int) (Record, error) {
	keyword := p.keyword()
	var status Status
	switch keyword {
	case "done":
		status = StatusDone
	case "running":
		status = StatusRunning
	case "error":
		status = StatusError
	case "exit":
		status = StatusExit
	default:
		return nil, p.fail(fmt.Sprintf("unknown result status %q", keyword))
	}

	fields, err := p.trailingFields()
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, Status: status, Fields: fields}, nil
}

func (p *parser) async(class AsyncClass) (Record, error) {
	event := p.keyword()
	if event == "" {
		return nil, p.fail("missing async event name")
	}
	fields, err := p.trailingFields()
	if err != nil {
		return nil, err
	}
	return &Async{Class: class, Event: event, Fields: fields}, nil
}

func (p *parser) stream(kind StreamKind, hasToken bool) (Record, error) {
	if hasToken {
		return nil, p.fail("stream record cannot carry a token")
	}
	text, err := p.cstring()
	if err != nil {
		return nil, err
	}
	if len(p.rest) != 0 {
		return nil, p.fail("trailing data after stream payload")
	}
	return &Stream{Kind: kind, Text: text}, nil
}

// keyword consumes a run of identifier characters (letters, digits, '-').
func (p *parser) keyword() string {
	n := 0
	for n < len(p.rest) {
		c := p.rest[n]
		if c == ',' || c == '=' {
			break
		}
		n++
	}
	kw := p.rest[:n]
	p.advance(n)
	return kw
}

// trailingFields consumes the optional ",key=value,..." suffix of a result
// or async record. An absent field list is legal; a trailing comma is not.
func (p *parser) trailingFields() (Tuple, error) {
	if len(p.rest) == 0 {
		return nil, nil
	}
	if p.rest[0] != ',' {
		return nil, p.fail("expected ',' before field list")
	}
	p.advance(1)
	return p.fields(0)
}

// fields parses a comma-separated key=value list up to the terminator
// (0 for end of line).
func (p *parser) fields(terminator byte) (Tuple, error) {
	var fields Tuple
	for {
		key, err := p.fieldKey()
		if err != nil {
			return nil, err
		}
		value, err := p.value()
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Key: key, Value: value})

		if len(p.rest) == 0 {
			if terminator == 0 {
				return fields, nil
			}
			return nil, p.fail(fmt.Sprintf("unterminated field list, expected %q", terminator))
		}
		if terminator != 0 && p.rest[0] == terminator {
			return fields, nil
		}
		if p.rest[0] != ',' {
			return nil, p.fail("expected ',' between fields")
		}
		p.advance(1)
		if len(p.rest) == 0 || (terminator != 0 && p.rest[0] == terminator) {
			return nil, p.fail("trailing comma in field list")
		}
	}
}

func (p *parser) fieldKey() (string, error) {
	n := strings.IndexByte(p.rest, '=')
	if n <= 0 {
		return "", p.fail("expected key=value field")
	}
	key := p.rest[:n]
	p.advance(n + 1)
	return key, nil
}

func (p *parser) value() (Value, error) {
	if len(p.rest) == 0 {
		return nil, p.fail("missing value")
	}
	switch p.rest[0] {
	case '"':
		s, err := p.cstring()
		if err != nil {
			return nil, err
		}
		return Const(s), nil
	case '{':
		return p.tuple()
	case '[':
		return p.list()
	default:
		return nil, p.fail("value must be a quoted string, tuple or list")
	}
}

func (p *parser) tuple() (Value, error) {
	p.advance(1) // '{'
	if len(p.rest) > 0 && p.rest[0] == '}' {
		p.advance(1)
		return Tuple{}, nil
	}
	fields, err := p.fields('}')
	if err != nil {
		return nil, err
	}
	if len(p.rest) == 0 || p.rest[0] != '}' {
		return nil, p.fail("unterminated tuple")
	}
	p.advance(1)
	return fields, nil
}

// list parses "[...]" whose items are values or key=value results. A keyed
// item (e.g. bkpt={...} inside a breakpoint table body) is wrapped as a
// single-field tuple so the Value shape stays closed over Const/Tuple/List.
func (p *parser) list() (Value, error) {
	p.advance(1) // '['
	if len(p.rest) > 0 && p.rest[0] == ']' {
		p.advance(1)
		return List{}, nil
	}
	var items List
	for {
		item, err := p.listItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		if len(p.rest) == 0 {
			return nil, p.fail("unterminated list")
		}
		if p.rest[0] == ']' {
			p.advance(1)
			return items, nil
		}
		if p.rest[0] != ',' {
			return nil, p.fail("expected ',' between list items")
		}
		p.advance(1)
		if len(p.rest) == 0 || p.rest[0] == ']' {
			return nil, p.fail("trailing comma in list")
		}
	}
}

func (p *parser) listItem() (Value, error) {
	if len(p.rest) > 0 {
		switch p.rest[0] {
		case '"', '{', '[':
			return p.value()
		}
	}
	key, err := p.fieldKey()
	if err != nil {
		return nil, err
	}
	value, err := p.value()
	if err != nil {
		return nil, err
	}
	return Tuple{{Key: key, Value: value}}, nil
}

// cstring parses a double-quoted string with backslash escapes. The escapes
// \n \t \" \\ are decoded; any other escape keeps the backslash literally.
func (p *parser) cstring() (string, error) {
	if len(p.rest) == 0 || p.rest[0] != '"' {
		return "", p.fail("expected opening quote")
	}
	p.advance(1)

	var sb strings.Builder
	for len(p.rest) > 0 {
		c := p.rest[0]
		switch c {
		case '"':
			p.advance(1)
			return sb.String(), nil
		case '\\':
			if len(p.rest) < 2 {
				return "", p.fail("dangling escape at end of string")
			}
			switch p.rest[1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(p.rest[1])
			}
			p.advance(2)
		default:
			sb.WriteByte(c)
			p.advance(1)
		}
	}
	return "", p.fail("unterminated string")
}
