package layout_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-bpfobject/irtype"
	"github.com/frobware/go-bpfobject/layout"
)

func symbol(name string, size int, fields ...irtype.Field) irtype.StructSymbol {
	return irtype.StructSymbol{
		Name:   name,
		Type:   irtype.Struct{Name: name},
		Fields: fields,
		Size:   size,
	}
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestTranslate_Empty(t *testing.T) {
	reg, err := layout.NewTranslator(nil).Translate(irtype.StructTable{})
	require.NoError(t, err)
	assert.NotNil(t, reg)
	assert.Empty(t, reg)

	reg, err = layout.NewTranslator(nil).Translate(nil)
	require.NoError(t, err)
	assert.Empty(t, reg)
}

func TestTranslate_AllStructs(t *testing.T) {
	table := irtype.StructTable{
		"exec": symbol("exec", 24,
			irtype.Field{Name: "ts", Type: irtype.Int{Width: 64}},
			irtype.Field{Name: "comm", Type: irtype.Array{Count: 16, Elem: irtype.Int{Width: 8}}},
		),
		"exit": symbol("exit", 12,
			irtype.Field{Name: "pid", Type: irtype.Int{Width: 32}},
			irtype.Field{Name: "code", Type: irtype.Int{Width: 64}},
		),
	}

	var buf bytes.Buffer
	reg, err := layout.NewTranslator(bufferLogger(&buf)).Translate(table)
	require.NoError(t, err)
	assert.Equal(t, []string{"exec", "exit"}, reg.Names())

	exec, ok := reg.Lookup("exec")
	require.True(t, ok)
	assert.Equal(t, 24, exec.Size())

	out := buf.String()
	assert.Contains(t, out, "converted struct")
	assert.Contains(t, out, "name=exec")
	assert.Contains(t, out, "ts:u64, comm:char[16]")
	assert.Contains(t, out, "name=exit")
	assert.Contains(t, out, "component=layout")
}

func TestTranslate_FailFast(t *testing.T) {
	table := irtype.StructTable{
		"good": symbol("good", 8, irtype.Field{Name: "ts", Type: irtype.Int{Width: 64}}),
		"bad":  symbol("bad", 4, irtype.Field{Name: "flag", Type: irtype.Float{Width: 32}}),
		"zoo":  symbol("zoo", 8, irtype.Field{Name: "ts", Type: irtype.Int{Width: 64}}),
	}

	reg, err := layout.NewTranslator(nil).Translate(table)
	require.Error(t, err)
	assert.Nil(t, reg, "no partial registry on failure")

	var sce *layout.StructConversionError
	require.True(t, errors.As(err, &sce))
	assert.Equal(t, "bad", sce.Struct)
}

func TestTranslate_SizeMismatchIsAdvisory(t *testing.T) {
	// The front end reports 16 bytes (it padded after pid); the packed
	// layout is 12. Translation still succeeds and warns.
	table := irtype.StructTable{
		"padded": symbol("padded", 16,
			irtype.Field{Name: "ts", Type: irtype.Int{Width: 64}},
			irtype.Field{Name: "pid", Type: irtype.Int{Width: 32}},
		),
	}

	var buf bytes.Buffer
	reg, err := layout.NewTranslator(bufferLogger(&buf)).Translate(table)
	require.NoError(t, err)
	assert.Equal(t, 12, reg["padded"].Size())
	assert.Contains(t, buf.String(), "front-end size differs from packed size")
}
