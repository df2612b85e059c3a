package irtype

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a textual type expression into a Type.
//
// Accepted forms:
//
//	u8 u16 u32 u64   unsigned integers (any uN or iN parses to Int{N})
//	char             alias for u8
//	f32 f64          floats
//	ptr, *T          opaque pointer
//	struct NAME      named aggregate
//	T[N]             array of N elements; suffixes apply left to right,
//	                 so u8[4][2] is an array of 2 elements of u8[4]
func Parse(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty type expression")
	}

	if strings.HasPrefix(s, "*") {
		if _, err := Parse(s[1:]); err != nil {
			return nil, fmt.Errorf("pointer target: %w", err)
		}
		return Pointer{}, nil
	}

	base := s
	var counts []int
	if i := strings.IndexByte(s, '['); i != -1 {
		base = strings.TrimSpace(s[:i])
		rest := s[i:]
		for rest != "" {
			if rest[0] != '[' {
				return nil, fmt.Errorf("unexpected %q in %q", rest, s)
			}
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return nil, fmt.Errorf("unterminated array suffix in %q", s)
			}
			n, err := strconv.Atoi(strings.TrimSpace(rest[1:end]))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid array count %q in %q", rest[1:end], s)
			}
			counts = append(counts, n)
			rest = strings.TrimSpace(rest[end+1:])
		}
	}

	t, err := parseBase(base)
	if err != nil {
		return nil, err
	}
	for _, n := range counts {
		t = Array{Count: n, Elem: t}
	}
	return t, nil
}

func parseBase(s string) (Type, error) {
	switch s {
	case "ptr":
		return Pointer{}, nil
	case "char":
		return Int{Width: 8}, nil
	}

	if name, ok := strings.CutPrefix(s, "struct "); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("struct reference without a name")
		}
		return Struct{Name: name}, nil
	}

	if len(s) >= 2 {
		width, err := strconv.Atoi(s[1:])
		if err == nil && width > 0 {
			switch s[0] {
			case 'u', 'i':
				return Int{Width: width}, nil
			case 'f':
				return Float{Width: width}, nil
			}
		}
	}

	return nil, fmt.Errorf("unknown type %q", s)
}
