package mi

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/ctagard/gdb-mcp/pkg/types"
)

// DecodeError reports a field tree that does not match the shape a decoder
// expects. Expected names the missing or mismatched key, Found describes
// what was there instead.
type DecodeError struct {
	Expected string
	Found    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: expected %s, found %s", e.Expected, e.Found)
}

func decodeErr(expected, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Expected: expected, Found: fmt.Sprintf(format, args...)}
}

// ErrorMessage extracts the backend's error text from an ^error result.
// The msg field is surfaced rather than thrown away; a missing msg still
// yields a usable message.
func ErrorMessage(r *Result) string {
	if msg := r.Fields.GetString("msg"); msg != "" {
		return msg
	}
	return "backend reported an error without a message"
}

// DecodeBreakpoint decodes one bkpt tuple. The backend-assigned number is
// required; everything else is optional and defaults to the zero value.
func DecodeBreakpoint(fields Tuple) (types.Breakpoint, error) {
	numStr := fields.GetString("number")
	if numStr == "" {
		return types.Breakpoint{}, decodeErr("bkpt.number", "tuple without a number key")
	}
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return types.Breakpoint{}, decodeErr("numeric bkpt.number", "%q", numStr)
	}

	bp := types.Breakpoint{
		Number:  num,
		File:    fields.GetString("file"),
		Func:    fields.GetString("func"),
		Address: fields.GetString("addr"),
		Enabled: fields.GetString("enabled") != "n",
	}
	if bp.File == "" {
		bp.File = fields.GetString("fullname")
	}
	bp.Line, _ = strconv.Atoi(fields.GetString("line"))
	bp.HitCount, _ = strconv.Atoi(fields.GetString("times"))
	return bp, nil
}

// DecodeBreakpointList decodes the BreakpointTable of a -break-list result.
// Malformed entries are skipped and reported as warnings; the table itself
// being absent is a whole-command decode failure.
func DecodeBreakpointList(fields Tuple) ([]types.Breakpoint, []error, error) {
	table := fields.GetTuple("BreakpointTable")
	if table == nil {
		return nil, nil, decodeErr("BreakpointTable tuple", "keys %v", keysOf(fields))
	}
	body := table.GetList("body")
	if body == nil {
		// An empty table has body=[] but old backends omit it entirely.
		return nil, nil, nil
	}

	bps := make([]types.Breakpoint, 0, len(body))
	var warnings []error
	for i, item := range body {
		entry, ok := lookThrough(item, "bkpt")
		if !ok {
			warnings = append(warnings, decodeErr("bkpt entry", "body[%d] is %T", i, item))
			continue
		}
		bp, err := DecodeBreakpoint(entry)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("body[%d]: %w", i, err))
			continue
		}
		bps = append(bps, bp)
	}
	return bps, warnings, nil
}

// DecodeInsertedBreakpoint decodes the bkpt field of a -break-insert result.
func DecodeInsertedBreakpoint(fields Tuple) (types.Breakpoint, error) {
	bkpt := fields.GetTuple("bkpt")
	if bkpt == nil {
		return types.Breakpoint{}, decodeErr("bkpt tuple", "keys %v", keysOf(fields))
	}
	return DecodeBreakpoint(bkpt)
}

// DecodeStackFrames decodes a -stack-list-frames result. Level 0 is the
// innermost frame. Individually malformed frames become warnings.
func DecodeStackFrames(fields Tuple) ([]types.StackFrame, []error, error) {
	stack := fields.GetList("stack")
	if stack == nil {
		return nil, nil, decodeErr("stack list", "keys %v", keysOf(fields))
	}

	frames := make([]types.StackFrame, 0, len(stack))
	var warnings []error
	for i, item := range stack {
		entry, ok := lookThrough(item, "frame")
		if !ok {
			warnings = append(warnings, decodeErr("frame entry", "stack[%d] is %T", i, item))
			continue
		}
		frames = append(frames, decodeFrame(entry))
	}
	return frames, warnings, nil
}

// DecodeFrame decodes a single frame tuple, as found in stopped events and
// stack lists. All fields are optional; the zero frame is still meaningful.
func DecodeFrame(fields Tuple) types.StackFrame {
	return decodeFrame(fields)
}

func decodeFrame(fields Tuple) types.StackFrame {
	f := types.StackFrame{
		Func:    fields.GetString("func"),
		File:    fields.GetString("file"),
		Address: fields.GetString("addr"),
	}
	if f.File == "" {
		f.File = fields.GetString("fullname")
	}
	f.Level, _ = strconv.Atoi(fields.GetString("level"))
	f.Line, _ = strconv.Atoi(fields.GetString("line"))
	return f
}

// DecodeVariables decodes a -stack-list-variables result. Entries without
// a name are skipped with a warning; type and value stay optional.
func DecodeVariables(fields Tuple) ([]types.Variable, []error, error) {
	list := fields.GetList("variables")
	if list == nil {
		// -stack-list-locals uses "locals" for the same shape.
		list = fields.GetList("locals")
	}
	if list == nil {
		return nil, nil, decodeErr("variables list", "keys %v", keysOf(fields))
	}

	vars := make([]types.Variable, 0, len(list))
	var warnings []error
	for i, item := range list {
		entry, ok := item.(Tuple)
		if !ok {
			warnings = append(warnings, decodeErr("variable tuple", "variables[%d] is %T", i, item))
			continue
		}
		name := entry.GetString("name")
		if name == "" {
			warnings = append(warnings, decodeErr("variable name", "variables[%d] has no name", i))
			continue
		}
		vars = append(vars, types.Variable{
			Name:  name,
			Type:  entry.GetString("type"),
			Value: entry.GetString("value"),
		})
	}
	return vars, warnings, nil
}

// DecodeRegisterNames decodes a -data-list-register-names result. Unnamed
// slots (architectural holes) come back as empty strings and are kept so
// register numbers stay aligned with the names slice.
func DecodeRegisterNames(fields Tuple) ([]string, error) {
	list := fields.GetList("register-names")
	if list == nil {
		return nil, decodeErr("register-names list", "keys %v", keysOf(fields))
	}
	names := make([]string, 0, len(list))
	for i, item := range list {
		c, ok := item.(Const)
		if !ok {
			return nil, decodeErr("register name string", "register-names[%d] is %T", i, item)
		}
		names = append(names, string(c))
	}
	return names, nil
}

// RegisterValue is one entry of a -data-list-register-values result,
// still keyed by register number rather than name.
type RegisterValue struct {
	Number int
	Value  string
}

// DecodeRegisterValues decodes a -data-list-register-values result.
func DecodeRegisterValues(fields Tuple) ([]RegisterValue, []error, error) {
	list := fields.GetList("register-values")
	if list == nil {
		return nil, nil, decodeErr("register-values list", "keys %v", keysOf(fields))
	}

	regs := make([]RegisterValue, 0, len(list))
	var warnings []error
	for i, item := range list {
		entry, ok := item.(Tuple)
		if !ok {
			warnings = append(warnings, decodeErr("register value tuple", "register-values[%d] is %T", i, item))
			continue
		}
		num, err := strconv.Atoi(entry.GetString("number"))
		if err != nil {
			warnings = append(warnings, decodeErr("numeric register number", "register-values[%d] number=%q", i, entry.GetString("number")))
			continue
		}
		regs = append(regs, RegisterValue{Number: num, Value: entry.GetString("value")})
	}
	return regs, warnings, nil
}

// DecodeMemoryBlock decodes a -data-read-memory-bytes result. The backend
// returns one or more ranges; the first is taken as the block. Returned
// may be less than requested on partial reads.
func DecodeMemoryBlock(fields Tuple, requested int) (types.MemoryBlock, error) {
	memory := fields.GetList("memory")
	if len(memory) == 0 {
		return types.MemoryBlock{}, decodeErr("memory range list", "keys %v", keysOf(fields))
	}
	entry, ok := memory[0].(Tuple)
	if !ok {
		return types.MemoryBlock{}, decodeErr("memory range tuple", "memory[0] is %T", memory[0])
	}

	contents := entry.GetString("contents")
	data, err := hex.DecodeString(contents)
	if err != nil {
		return types.MemoryBlock{}, decodeErr("hex contents", "%q", contents)
	}

	return types.MemoryBlock{
		Address:   entry.GetString("begin"),
		Contents:  data,
		Requested: requested,
		Returned:  len(data),
	}, nil
}

// lookThrough unwraps a keyed list item (a single-field tuple produced by
// the parser for entries like bkpt={...}) down to its inner tuple. A bare
// tuple item passes through unchanged.
func lookThrough(item Value, key string) (Tuple, bool) {
	t, ok := item.(Tuple)
	if !ok {
		return nil, false
	}
	if len(t) == 1 && t[0].Key == key {
		inner, ok := t[0].Value.(Tuple)
		return inner, ok
	}
	return t, true
}

func keysOf(t Tuple) []string {
	keys := make([]string, 0, len(t))
	for _, f := range t {
		keys = append(keys, f.Key)
	}
	return keys
}
