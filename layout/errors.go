package layout

import (
	"fmt"
	"strings"

	"github.com/frobware/go-bpfobject/irtype"
)

// UnsupportedTypeError is returned when a type descriptor has no
// native representation.
type UnsupportedTypeError struct {
	// Reason is "integer width", "array count", "array size", "struct
	// size", or the descriptor kind.
	Reason string
	Type   irtype.Type
}

func (e *UnsupportedTypeError) Error() string {
	if e.Type == nil {
		return fmt.Sprintf("unsupported type: %s", e.Reason)
	}
	return fmt.Sprintf("unsupported type %s: %s", e.Type, e.Reason)
}

// StructConversionError is returned when a struct cannot be built.
// Err is the field-level cause.
type StructConversionError struct {
	Struct string
	Field  string
	Err    error
}

func (e *StructConversionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("convert struct %q: %v", e.Struct, e.Err)
	}
	return fmt.Sprintf("convert struct %q: field %q: %v", e.Struct, e.Field, e.Err)
}

func (e *StructConversionError) Unwrap() error { return e.Err }

// IncompleteTableError is returned when a front-end struct table has
// entries lacking a type descriptor, field list or size.
type IncompleteTableError struct {
	Names []string
}

func (e *IncompleteTableError) Error() string {
	return fmt.Sprintf("front-end struct table has incomplete entries: %s", strings.Join(e.Names, ", "))
}

// ShortBufferError is returned when a sample is smaller than the
// struct it is decoded as.
type ShortBufferError struct {
	Struct string
	Want   int
	Got    int
}

func (e *ShortBufferError) Error() string {
	return fmt.Sprintf("decode %s: need %d bytes, got %d", e.Struct, e.Want, e.Got)
}
