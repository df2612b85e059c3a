package cli

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"

	"github.com/frobware/go-bpfobject/irtype"
	"github.com/frobware/go-bpfobject/layout"
)

// StructFile is a parsed struct definitions file.
//
// The file lists structs in memory order of their fields:
//
//	[[struct]]
//	name = "event"
//	size = 20            # optional
//	fields = [
//	  { name = "pid",  type = "u32" },
//	  { name = "comm", type = "char[16]" },
//	]
//
// When every struct gives a size the file is treated as a front-end
// table and translated, with size mismatches logged. Otherwise the
// layouts are built directly.
type StructFile struct {
	Path    string
	Structs layout.Structs
}

type structFileTOML struct {
	Structs []structDef `toml:"struct"`
}

type structDef struct {
	Name   string     `toml:"name"`
	Size   int        `toml:"size"`
	Fields []fieldDef `toml:"fields"`
}

type fieldDef struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// ParseStructFile reads and parses the struct definitions at path.
func ParseStructFile(path string) (StructFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StructFile{}, fmt.Errorf("read struct file: %w", err)
	}
	s, err := ParseStructs(string(data))
	if err != nil {
		return StructFile{}, fmt.Errorf("%s: %w", path, err)
	}
	return StructFile{Path: path, Structs: s}, nil
}

// ParseStructs parses struct definitions in TOML form.
func ParseStructs(data string) (layout.Structs, error) {
	var file structFileTOML
	md, err := toml.Decode(data, &file)
	if err != nil {
		return nil, fmt.Errorf("parse struct definitions: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	table := make(irtype.StructTable, len(file.Structs))
	sized := true
	for _, def := range file.Structs {
		if def.Name == "" {
			return nil, fmt.Errorf("struct without a name")
		}
		if _, dup := table[def.Name]; dup {
			return nil, fmt.Errorf("struct %s defined twice", def.Name)
		}
		if len(def.Fields) == 0 {
			return nil, fmt.Errorf("struct %s has no fields", def.Name)
		}
		if def.Size < 0 {
			return nil, fmt.Errorf("struct %s: negative size %d", def.Name, def.Size)
		}

		fields := make([]irtype.Field, len(def.Fields))
		for i, fd := range def.Fields {
			if fd.Name == "" {
				return nil, fmt.Errorf("struct %s: field %d has no name", def.Name, i)
			}
			t, err := irtype.Parse(fd.Type)
			if err != nil {
				return nil, fmt.Errorf("struct %s field %s: %w", def.Name, fd.Name, err)
			}
			fields[i] = irtype.Field{Name: fd.Name, Type: t}
		}

		table[def.Name] = irtype.StructSymbol{
			Name:   def.Name,
			Type:   irtype.Struct{Name: def.Name},
			Fields: fields,
			Size:   def.Size,
		}
		if def.Size == 0 {
			sized = false
		}
	}

	if sized {
		return layout.FrontEndStructs(table), nil
	}

	native := make(layout.NativeStructs, len(table))
	for name, sym := range table {
		s, err := layout.Build(name, sym.Fields)
		if err != nil {
			return nil, err
		}
		native[name] = s
	}
	return native, nil
}

// structFileMapper creates a Kong mapper that parses the file named by
// the flag value.
func structFileMapper() kong.MapperFunc {
	return func(ctx *kong.DecodeContext, target reflect.Value) error {
		var path string
		if err := ctx.Scan.PopValueInto("path", &path); err != nil {
			return err
		}
		sf, err := ParseStructFile(path)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(sf))
		return nil
	}
}

// StructsCmd shows the packed layouts of a struct definitions file.
type StructsCmd struct {
	File StructFile `arg:"" name:"file" help:"TOML struct definitions file."`
}

// Run executes the structs command.
func (c *StructsCmd) Run(cli *CLI) error {
	_, logger, err := cli.setup()
	if err != nil {
		return err
	}

	registry, err := layout.Resolve(c.File.Structs, layout.NewTranslator(logger))
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, name := range registry.Names() {
		s := registry[name]
		fmt.Fprintf(&b, "%s  %d bytes\n", s.Name(), s.Size())
		for _, f := range s.Fields() {
			fmt.Fprintf(&b, "  %-4d %-20s %s\n", f.Offset, f.Name, f.Type)
		}
	}
	return cli.PrintOut(b.String())
}
