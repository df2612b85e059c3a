package layout_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/cilium/ebpf/btf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-bpfobject/irtype"
	"github.com/frobware/go-bpfobject/layout"
)

func eventFields() []irtype.Field {
	return []irtype.Field{
		{Name: "ts", Type: irtype.Int{Width: 64}},
		{Name: "pid", Type: irtype.Int{Width: 32}},
		{Name: "flags", Type: irtype.Int{Width: 16}},
		{Name: "cpu", Type: irtype.Int{Width: 8}},
		{Name: "comm", Type: irtype.Array{Count: 16, Elem: irtype.Int{Width: 8}}},
		{Name: "args", Type: irtype.Array{Count: 3, Elem: irtype.Int{Width: 64}}},
		{Name: "task", Type: irtype.Pointer{}},
	}
}

func TestBuild_SingleField(t *testing.T) {
	s, err := layout.Build("event", []irtype.Field{{Name: "ts", Type: irtype.Int{Width: 64}}})
	require.NoError(t, err)

	require.Equal(t, 1, s.NumField())
	assert.Equal(t, 8, s.Size())
	f, ok := s.Field("ts")
	require.True(t, ok)
	assert.Equal(t, layout.Uint64, f.Type)

	data := make([]byte, 8)
	binary.NativeEndian.PutUint64(data, 1234567)
	rec, err := layout.Decode(s, data)
	require.NoError(t, err)
	assert.Contains(t, rec.String(), "ts=1234567")
	assert.Equal(t, "<event ts=1234567>", rec.String())
}

func TestBuild_PreservesOrderAndPacks(t *testing.T) {
	s, err := layout.Build("event", eventFields())
	require.NoError(t, err)

	var names []string
	sum := 0
	for _, f := range s.Fields() {
		names = append(names, f.Name)
		assert.Equal(t, sum, f.Offset, "field %s must follow the previous one without padding", f.Name)
		sum += f.Type.Size()
	}
	assert.Equal(t, []string{"ts", "pid", "flags", "cpu", "comm", "args", "task"}, names)
	assert.Equal(t, sum, s.Size())
	assert.Equal(t, 8+4+2+1+16+24+8, s.Size())
}

func TestBuild_SizeInvariantForManyShapes(t *testing.T) {
	shapes := []string{"u8", "u16", "u32", "u64", "ptr", "char[3]", "u16[5]", "u8[2][3]", "u32[2][2]"}
	var fields []irtype.Field
	for i, shape := range shapes {
		typ, err := irtype.Parse(shape)
		require.NoError(t, err)
		fields = append(fields, irtype.Field{Name: string(rune('a' + i)), Type: typ})

		s, err := layout.Build("prefix", fields)
		require.NoError(t, err)
		total := 0
		for _, f := range s.Fields() {
			total += f.Type.Size()
		}
		assert.Equal(t, total, s.Size(), "after adding %s", shape)
	}
}

func TestBuild_UnsupportedFieldFailsWholeStruct(t *testing.T) {
	fields := []irtype.Field{
		{Name: "ts", Type: irtype.Int{Width: 64}},
		{Name: "flag", Type: irtype.Float{Width: 32}},
	}

	s, err := layout.Build("sample", fields)
	require.Error(t, err)
	assert.Nil(t, s)

	var sce *layout.StructConversionError
	require.True(t, errors.As(err, &sce))
	assert.Equal(t, "sample", sce.Struct)
	assert.Equal(t, "flag", sce.Field)

	var ute *layout.UnsupportedTypeError
	assert.True(t, errors.As(err, &ute), "cause must be reachable with errors.As")
	assert.Contains(t, err.Error(), `"sample"`)
}

func TestBuild_RejectsSizeOverflow(t *testing.T) {
	half := irtype.Array{Count: math.MaxInt/2 + 1, Elem: irtype.Int{Width: 8}}

	s, err := layout.Build("huge", []irtype.Field{
		{Name: "a", Type: half},
		{Name: "b", Type: half},
	})
	require.Error(t, err)
	assert.Nil(t, s)

	var sce *layout.StructConversionError
	require.True(t, errors.As(err, &sce))
	assert.Equal(t, "b", sce.Field)
	var ute *layout.UnsupportedTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "struct size", ute.Reason)

	// An element count whose byte size wraps must not produce a
	// zero-sized layout that Decode would accept.
	s, err = layout.Build("wrap", []irtype.Field{
		{Name: "a", Type: irtype.Array{Count: math.MaxInt/8 + 1, Elem: irtype.Int{Width: 64}}},
	})
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "array size", ute.Reason)
	assert.Nil(t, s)
}

func TestBuild_RejectsDuplicateAndEmptyNames(t *testing.T) {
	_, err := layout.Build("dup", []irtype.Field{
		{Name: "a", Type: irtype.Int{Width: 8}},
		{Name: "a", Type: irtype.Int{Width: 8}},
	})
	var sce *layout.StructConversionError
	require.True(t, errors.As(err, &sce))
	assert.Equal(t, "a", sce.Field)

	_, err = layout.Build("anon", []irtype.Field{{Type: irtype.Int{Width: 8}}})
	require.True(t, errors.As(err, &sce))
	assert.Equal(t, "anon", sce.Struct)
}

func TestBuild_EmptyStruct(t *testing.T) {
	s, err := layout.Build("empty", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, "<empty>", layout.Format(s, nil))
}

func TestStruct_BTF(t *testing.T) {
	s, err := layout.Build("event", eventFields())
	require.NoError(t, err)

	bs := s.BTF()
	assert.Equal(t, "event", bs.Name)
	require.Len(t, bs.Members, s.NumField())

	size, err := btf.Sizeof(bs)
	require.NoError(t, err)
	assert.Equal(t, s.Size(), size)

	for i, f := range s.Fields() {
		m := bs.Members[i]
		assert.Equal(t, f.Name, m.Name)
		assert.Equal(t, btf.Bits(f.Offset*8), m.Offset)
		msize, err := btf.Sizeof(m.Type)
		require.NoError(t, err)
		assert.Equal(t, f.Type.Size(), msize, "member %s", f.Name)
	}
}
