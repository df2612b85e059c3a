package layout

import (
	"maps"
	"slices"

	"github.com/frobware/go-bpfobject/irtype"
)

// Structs is a struct table tagged with its origin: FrontEndStructs
// still need translation, NativeStructs are ready to use.
type Structs interface {
	structs()
}

// FrontEndStructs is a struct table as produced by a compiler front end.
type FrontEndStructs irtype.StructTable

// NativeStructs is a registry of already materialised layouts.
type NativeStructs Registry

func (FrontEndStructs) structs() {}
func (NativeStructs) structs()   {}

// NeedsTranslation reports whether s must be translated before use.
//
// It is false for nil, empty and native tables. A front-end table needs
// translation only when every entry carries a type descriptor, a field
// list and a size; a table with any incomplete entry reports false.
func NeedsTranslation(s Structs) bool {
	fe, ok := s.(FrontEndStructs)
	if !ok || len(fe) == 0 {
		return false
	}
	for _, sym := range fe {
		if !sym.Complete() {
			return false
		}
	}
	return true
}

// Resolve returns the registry for s, translating front-end tables with
// t. A nil s yields an empty registry. A non-empty front-end table that
// does not classify for translation fails with *IncompleteTableError.
func Resolve(s Structs, t *Translator) (Registry, error) {
	switch v := s.(type) {
	case nil:
		return Registry{}, nil
	case NativeStructs:
		out := make(Registry, len(v))
		maps.Copy(out, v)
		return out, nil
	case FrontEndStructs:
		if len(v) == 0 {
			return Registry{}, nil
		}
		if !NeedsTranslation(v) {
			var incomplete []string
			for name, sym := range v {
				if !sym.Complete() {
					incomplete = append(incomplete, name)
				}
			}
			slices.Sort(incomplete)
			return nil, &IncompleteTableError{Names: incomplete}
		}
		return t.Translate(irtype.StructTable(v))
	default:
		return Registry{}, nil
	}
}
