// Package layout materialises front-end struct descriptors into packed
// native layouts and decodes kernel-written bytes against them.
//
// Layouts are packed: every field starts where the previous one ends
// and no alignment padding is inserted. Field order is never changed.
package layout

import (
	"fmt"

	"github.com/cilium/ebpf/btf"
)

// PointerSize is the size of an opaque pointer. BPF is a 64-bit target
// regardless of the host.
const PointerSize = 8

// Kind is the shape of a NativeType.
type Kind int

const (
	KindUint8 Kind = iota + 1
	KindUint16
	KindUint32
	KindUint64
	KindBytes
	KindArray
	KindPointer
)

func (k Kind) String() string {
	switch k {
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindPointer:
		return "pointer"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// NativeType is a native memory type. The zero value is invalid.
type NativeType struct {
	kind  Kind
	count int
	elem  *NativeType
}

// Scalar native types.
var (
	Uint8   = NativeType{kind: KindUint8}
	Uint16  = NativeType{kind: KindUint16}
	Uint32  = NativeType{kind: KindUint32}
	Uint64  = NativeType{kind: KindUint64}
	Pointer = NativeType{kind: KindPointer}
)

// Bytes returns a byte buffer of n bytes. Byte buffers hold text-like
// data and are rendered as strings rather than as numbers.
func Bytes(n int) NativeType {
	return NativeType{kind: KindBytes, count: n}
}

// ArrayOf returns a fixed array of n elements of elem.
func ArrayOf(elem NativeType, n int) NativeType {
	return NativeType{kind: KindArray, count: n, elem: &elem}
}

func (t NativeType) Kind() Kind { return t.kind }

// Len returns the element count of a byte buffer or array, or 0.
func (t NativeType) Len() int { return t.count }

// Elem returns the element type of an array.
func (t NativeType) Elem() (NativeType, bool) {
	if t.elem == nil {
		return NativeType{}, false
	}
	return *t.elem, true
}

// Size returns the size of the type in bytes.
func (t NativeType) Size() int {
	switch t.kind {
	case KindUint8:
		return 1
	case KindUint16:
		return 2
	case KindUint32:
		return 4
	case KindUint64, KindPointer:
		return 8
	case KindBytes:
		return t.count
	case KindArray:
		return t.elem.Size() * t.count
	default:
		return 0
	}
}

func (t NativeType) String() string {
	switch t.kind {
	case KindUint8:
		return "u8"
	case KindUint16:
		return "u16"
	case KindUint32:
		return "u32"
	case KindUint64:
		return "u64"
	case KindPointer:
		return "ptr"
	case KindBytes:
		return fmt.Sprintf("char[%d]", t.count)
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.elem, t.count)
	default:
		return "invalid"
	}
}

var btfIndex = &btf.Int{Name: "__u32", Size: 4, Encoding: btf.Unsigned}

// btfType mirrors t as a BTF type.
func (t NativeType) btfType() btf.Type {
	switch t.kind {
	case KindUint8:
		return &btf.Int{Name: "__u8", Size: 1, Encoding: btf.Unsigned}
	case KindUint16:
		return &btf.Int{Name: "__u16", Size: 2, Encoding: btf.Unsigned}
	case KindUint32:
		return &btf.Int{Name: "__u32", Size: 4, Encoding: btf.Unsigned}
	case KindUint64:
		return &btf.Int{Name: "__u64", Size: 8, Encoding: btf.Unsigned}
	case KindPointer:
		return &btf.Pointer{Target: &btf.Void{}}
	case KindBytes:
		return &btf.Array{
			Index:  btfIndex,
			Type:   &btf.Int{Name: "char", Size: 1, Encoding: btf.Char},
			Nelems: uint32(t.count),
		}
	case KindArray:
		return &btf.Array{Index: btfIndex, Type: t.elem.btfType(), Nelems: uint32(t.count)}
	default:
		return &btf.Void{}
	}
}
