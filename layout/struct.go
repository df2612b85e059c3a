package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cilium/ebpf/btf"

	"github.com/frobware/go-bpfobject/irtype"
)

// Field is one member of a Struct.
type Field struct {
	Name string
	Type NativeType
	// Offset is the byte offset of the field within the struct.
	Offset int
}

// Struct is a packed native struct layout. Structs are immutable once
// built; use Build to construct one.
type Struct struct {
	name   string
	fields []Field
	index  map[string]int
	size   int
}

// Build converts an ordered field list into a Struct. Field order is
// preserved exactly. If any field fails to convert, no Struct is
// returned and the error is a *StructConversionError.
func Build(name string, fields []irtype.Field) (*Struct, error) {
	s := &Struct{
		name:   name,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, &StructConversionError{Struct: name, Err: errors.New("field without a name")}
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, &StructConversionError{Struct: name, Field: f.Name, Err: errors.New("duplicate field name")}
		}

		nt, err := Convert(f.Type)
		if err != nil {
			return nil, &StructConversionError{Struct: name, Field: f.Name, Err: err}
		}

		if nt.Size() > math.MaxInt-s.size {
			return nil, &StructConversionError{Struct: name, Field: f.Name, Err: &UnsupportedTypeError{Reason: "struct size", Type: f.Type}}
		}

		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, Field{Name: f.Name, Type: nt, Offset: s.size})
		s.size += nt.Size()
	}

	return s, nil
}

// Name returns the struct name.
func (s *Struct) Name() string { return s.name }

// Size returns the struct size in bytes: the sum of its field sizes.
func (s *Struct) Size() int { return s.size }

// NumField returns the number of fields.
func (s *Struct) NumField() int { return len(s.fields) }

// Fields returns the fields in declared order.
func (s *Struct) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the named field.
func (s *Struct) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// FieldSummary renders the fields as "name:type" pairs in order.
func (s *Struct) FieldSummary() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	return strings.Join(parts, ", ")
}

func (s *Struct) String() string {
	return fmt.Sprintf("%s{%s} (%d bytes)", s.name, s.FieldSummary(), s.size)
}

// BTF returns the layout as a BTF struct with explicit member offsets.
// A new value is built on each call.
func (s *Struct) BTF() *btf.Struct {
	members := make([]btf.Member, len(s.fields))
	for i, f := range s.fields {
		members[i] = btf.Member{
			Name:   f.Name,
			Type:   f.Type.btfType(),
			Offset: btf.Bits(f.Offset * 8),
		}
	}
	return &btf.Struct{
		Name:    s.name,
		Size:    uint32(s.size),
		Members: members,
	}
}
