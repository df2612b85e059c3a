package irtype

import (
	"fmt"

	"github.com/cilium/ebpf/btf"
)

// FromBTF converts a BTF type into a front-end descriptor. Typedefs
// and qualifiers are looked through. Shapes without a front-end
// equivalent (unions, functions, void) are rejected.
func FromBTF(t btf.Type) (Type, error) {
	switch v := btf.UnderlyingType(t).(type) {
	case *btf.Int:
		return Int{Width: int(v.Size) * 8}, nil
	case *btf.Enum:
		return Int{Width: int(v.Size) * 8}, nil
	case *btf.Float:
		return Float{Width: int(v.Size) * 8}, nil
	case *btf.Pointer:
		return Pointer{}, nil
	case *btf.Array:
		elem, err := FromBTF(v.Type)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		return Array{Count: int(v.Nelems), Elem: elem}, nil
	case *btf.Struct:
		return Struct{Name: v.Name}, nil
	default:
		return nil, fmt.Errorf("btf type %s has no front-end equivalent", t)
	}
}

// SymbolFromBTF builds a StructSymbol from a BTF struct.
//
// The native layout is packed, so a struct whose members do not sit
// back to back (alignment holes, bitfields) is rejected rather than
// producing a descriptor that would misread kernel bytes. Trailing
// padding is kept in Size.
func SymbolFromBTF(s *btf.Struct) (StructSymbol, error) {
	sym := StructSymbol{
		Name:   s.Name,
		Type:   Struct{Name: s.Name},
		Fields: make([]Field, 0, len(s.Members)),
		Size:   int(s.Size),
	}

	var offset uint32
	for _, m := range s.Members {
		if m.BitfieldSize != 0 {
			return StructSymbol{}, fmt.Errorf("struct %s: member %s is a bitfield", s.Name, m.Name)
		}
		if uint32(m.Offset)%8 != 0 || uint32(m.Offset)/8 != offset {
			return StructSymbol{}, fmt.Errorf("struct %s: member %s at byte %d, packed layout expects %d",
				s.Name, m.Name, uint32(m.Offset)/8, offset)
		}

		ft, err := FromBTF(m.Type)
		if err != nil {
			return StructSymbol{}, fmt.Errorf("struct %s: member %s: %w", s.Name, m.Name, err)
		}
		size, err := btf.Sizeof(m.Type)
		if err != nil {
			return StructSymbol{}, fmt.Errorf("struct %s: member %s: %w", s.Name, m.Name, err)
		}

		sym.Fields = append(sym.Fields, Field{Name: m.Name, Type: ft})
		offset += uint32(size)
	}

	return sym, nil
}

// TableFromBTF looks up each named struct in spec and converts it.
func TableFromBTF(spec *btf.Spec, names ...string) (StructTable, error) {
	table := make(StructTable, len(names))
	for _, name := range names {
		var s *btf.Struct
		if err := spec.TypeByName(name, &s); err != nil {
			return nil, fmt.Errorf("find struct %q: %w", name, err)
		}
		sym, err := SymbolFromBTF(s)
		if err != nil {
			return nil, err
		}
		table[name] = sym
	}
	return table, nil
}
