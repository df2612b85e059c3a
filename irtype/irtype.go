// Package irtype describes value shapes as produced by a compiler front
// end, before they are materialised into a native memory layout.
//
// The converter in package layout accepts exactly three shapes: Int,
// Array and Pointer. Front ends may hand over other shapes (Float,
// Struct, or their own implementations of Type); those are carried
// through unchanged so that the converter can reject them by name.
package irtype

import "fmt"

// Type is a front-end type descriptor. Implementations are immutable.
type Type interface {
	// Kind names the descriptor shape (e.g., "int", "array").
	Kind() string
	String() string
}

// Int is a fixed-width integer. Signedness is not tracked; the native
// materialisation is always unsigned.
type Int struct {
	Width int
}

func (Int) Kind() string     { return "int" }
func (t Int) String() string { return fmt.Sprintf("i%d", t.Width) }

// Array is a fixed-size array of Count elements of type Elem.
type Array struct {
	Count int
	Elem  Type
}

func (Array) Kind() string { return "array" }

func (t Array) String() string {
	if t.Elem == nil {
		return fmt.Sprintf("[%d x <nil>]", t.Count)
	}
	return fmt.Sprintf("[%d x %s]", t.Count, t.Elem)
}

// Pointer is an opaque pointer. The pointee is not tracked.
type Pointer struct{}

func (Pointer) Kind() string   { return "pointer" }
func (Pointer) String() string { return "ptr" }

// Float is a floating point value. It has no native materialisation.
type Float struct {
	Width int
}

func (Float) Kind() string     { return "float" }
func (t Float) String() string { return fmt.Sprintf("f%d", t.Width) }

// Struct is a reference to a named aggregate. Nested aggregates have
// no native materialisation.
type Struct struct {
	Name string
}

func (Struct) Kind() string     { return "struct" }
func (t Struct) String() string { return "struct " + t.Name }

// Field is one named member of an aggregate.
type Field struct {
	Name string
	Type Type
}

// StructSymbol is a named aggregate as emitted by the front end.
// Fields are in memory order; that order is load-bearing.
type StructSymbol struct {
	Name string
	// Type is the aggregate's own descriptor.
	Type Type
	// Fields is nil when the front end did not supply a field list.
	Fields []Field
	// Size is the front end's byte size for the aggregate.
	Size int
}

// Complete reports whether the symbol carries a type descriptor, a
// field list and a size.
func (s StructSymbol) Complete() bool {
	return s.Type != nil && s.Fields != nil && s.Size > 0
}

// StructTable maps struct names to their symbols.
type StructTable map[string]StructSymbol
