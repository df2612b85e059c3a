package layout

import (
	"math"

	"github.com/frobware/go-bpfobject/irtype"
)

// Convert maps one front-end type descriptor to its native type.
//
// Integers become unsigned fixed-width types. An array of 8-bit
// integers becomes a byte buffer, any other array a fixed array of the
// converted element. Pointers become opaque pointer-sized values.
// Every other shape fails with *UnsupportedTypeError, as does an array
// whose size in bytes does not fit in an int.
func Convert(t irtype.Type) (NativeType, error) {
	switch v := t.(type) {
	case irtype.Int:
		switch v.Width {
		case 8:
			return Uint8, nil
		case 16:
			return Uint16, nil
		case 32:
			return Uint32, nil
		case 64:
			return Uint64, nil
		}
		return NativeType{}, &UnsupportedTypeError{Reason: "integer width", Type: t}

	case irtype.Array:
		if v.Count < 0 {
			return NativeType{}, &UnsupportedTypeError{Reason: "array count", Type: t}
		}
		if elem, ok := v.Elem.(irtype.Int); ok && elem.Width == 8 {
			return Bytes(v.Count), nil
		}
		elem, err := Convert(v.Elem)
		if err != nil {
			return NativeType{}, err
		}
		if es := elem.Size(); es > 0 && v.Count > math.MaxInt/es {
			return NativeType{}, &UnsupportedTypeError{Reason: "array size", Type: t}
		}
		return ArrayOf(elem, v.Count), nil

	case irtype.Pointer:
		return Pointer, nil

	case nil:
		return NativeType{}, &UnsupportedTypeError{Reason: "nil descriptor"}

	default:
		return NativeType{}, &UnsupportedTypeError{Reason: t.Kind(), Type: t}
	}
}
