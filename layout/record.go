package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Record is one decoded instance of a Struct.
//
// Values hold uint8, uint16, uint32 or uint64 for integers, []byte for
// byte buffers, []any for arrays and uint64 for pointers.
type Record struct {
	Struct *Struct
	Values []any
}

// Field returns the value of the named field.
func (r Record) Field(name string) (any, bool) {
	if r.Struct == nil {
		return nil, false
	}
	i, ok := r.Struct.index[name]
	if !ok || i >= len(r.Values) {
		return nil, false
	}
	return r.Values[i], true
}

func (r Record) String() string {
	return Format(r.Struct, r.Values)
}

// Decode interprets data as an instance of s using the host byte order.
// Trailing bytes beyond s.Size() are ignored.
func Decode(s *Struct, data []byte) (Record, error) {
	if len(data) < s.size {
		return Record{}, &ShortBufferError{Struct: s.name, Want: s.size, Got: len(data)}
	}

	values := make([]any, len(s.fields))
	for i, f := range s.fields {
		values[i] = decodeValue(f.Type, data[f.Offset:f.Offset+f.Type.Size()])
	}
	return Record{Struct: s, Values: values}, nil
}

func decodeValue(t NativeType, b []byte) any {
	switch t.kind {
	case KindUint8:
		return b[0]
	case KindUint16:
		return binary.NativeEndian.Uint16(b)
	case KindUint32:
		return binary.NativeEndian.Uint32(b)
	case KindUint64, KindPointer:
		return binary.NativeEndian.Uint64(b)
	case KindBytes:
		return bytes.Clone(b)
	case KindArray:
		elem := *t.elem
		size := elem.Size()
		out := make([]any, t.count)
		for i := range out {
			out[i] = decodeValue(elem, b[i*size:(i+1)*size])
		}
		return out
	default:
		return nil
	}
}

// Format renders values as an instance of s:
//
//	<Name field1=v1 field2=v2 ...>
//
// Every field is rendered in declared order. A missing value renders
// as <nil>.
func Format(s *Struct, values []any) string {
	if s == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(s.name)
	for i, f := range s.fields {
		b.WriteByte(' ')
		b.WriteString(f.Name)
		b.WriteByte('=')
		var v any
		if i < len(values) {
			v = values[i]
		}
		b.WriteString(formatValue(f.Type, v))
	}
	b.WriteByte('>')
	return b.String()
}

func formatValue(t NativeType, v any) string {
	if v == nil {
		return "<nil>"
	}

	switch t.kind {
	case KindBytes:
		if raw, ok := v.([]byte); ok {
			if i := bytes.IndexByte(raw, 0); i != -1 {
				raw = raw[:i]
			}
			return strconv.Quote(string(raw))
		}
	case KindArray:
		if elems, ok := v.([]any); ok {
			parts := make([]string, len(elems))
			for i, e := range elems {
				parts[i] = formatValue(*t.elem, e)
			}
			return "[" + strings.Join(parts, " ") + "]"
		}
	case KindPointer:
		return fmt.Sprintf("%#x", v)
	}
	return fmt.Sprint(v)
}
