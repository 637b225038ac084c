package mi

import "strings"

// Serialization renders field trees back into MI wire syntax. Parsing a
// line and re-serializing its tree is lossless for the Const, Tuple and
// List shapes; keyed list items are normalized to their tuple form.

func (c Const) appendTo(sb *strings.Builder) {
	sb.WriteByte('"')
	for i := 0; i < len(string(c)); i++ {
		switch ch := string(c)[i]; ch {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			sb.WriteByte(ch)
		}
	}
	sb.WriteByte('"')
}

func (t Tuple) appendTo(sb *strings.Builder) {
	sb.WriteByte('{')
	t.appendFields(sb)
	sb.WriteByte('}')
}

func (t Tuple) appendFields(sb *strings.Builder) {
	for i, f := range t {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.Key)
		sb.WriteByte('=')
		f.Value.appendTo(sb)
	}
}

func (l List) appendTo(sb *strings.Builder) {
	sb.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			sb.WriteByte(',')
		}
		v.appendTo(sb)
	}
	sb.WriteByte(']')
}

func (c Const) String() string { return render(c) }
func (t Tuple) String() string { return render(t) }
func (l List) String() string  { return render(l) }

func render(v Value) string {
	var sb strings.Builder
	v.appendTo(&sb)
	return sb.String()
}

// FieldsString renders a record's top-level field list without surrounding
// braces, matching how it appears after the record keyword on the wire.
func FieldsString(t Tuple) string {
	var sb strings.Builder
	t.appendFields(&sb)
	return sb.String()
}
