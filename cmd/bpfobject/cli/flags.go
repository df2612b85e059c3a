package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"k8s.io/client-go/util/jsonpath"

	bpfobject "github.com/frobware/go-bpfobject"
	"github.com/frobware/go-bpfobject/config"
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	OutputFormatTable    OutputFormat = "table"
	OutputFormatJSON     OutputFormat = "json"
	OutputFormatJSONPath OutputFormat = "jsonpath"
)

// OutputFlags provides output formatting flags.
type OutputFlags struct {
	Output string `short:"o" help:"Output format: table, json, jsonpath=EXPR." default:"table"`
}

// Format returns the base format type.
func (f *OutputFlags) Format() OutputFormat {
	switch {
	case f.Output == "json":
		return OutputFormatJSON
	case strings.HasPrefix(f.Output, "jsonpath="):
		return OutputFormatJSONPath
	default:
		return OutputFormatTable
	}
}

// JSONPathExpr returns the JSONPath expression if format is jsonpath=EXPR.
func (f *OutputFlags) JSONPathExpr() string {
	expr, ok := strings.CutPrefix(f.Output, "jsonpath=")
	if !ok {
		return ""
	}
	return expr
}

// render evaluates the JSONPath expression against v, or calls format
// for the other output formats.
func (f *OutputFlags) render(v any, format func(OutputFormat) (string, error)) (string, error) {
	if f.Format() == OutputFormatJSONPath {
		return FormatJSONPath(v, f.JSONPathExpr())
	}
	return format(f.Format())
}

// FormatJSONPath renders v through its JSON form with a kubectl-style
// JSONPath template.
func FormatJSONPath(v any, expr string) (string, error) {
	jp := jsonpath.New("output")
	if err := jp.Parse(expr); err != nil {
		return "", fmt.Errorf("invalid jsonpath expression %q: %w", expr, err)
	}

	// Convert to generic interface for jsonpath
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	var data any
	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return "", fmt.Errorf("failed to unmarshal: %w", err)
	}

	var buf bytes.Buffer
	if err := jp.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("jsonpath execution failed: %w", err)
	}
	return buf.String() + "\n", nil
}

// ObjectFlags select the object a command works on: an object file to
// load, or a directory of pinned maps.
type ObjectFlags struct {
	Object string `name:"object" help:"eBPF object file to load." xor:"source" required:"" type:"existingfile"`
	Pinned string `name:"pinned" help:"Directory of pinned maps; relative paths are under the bpffs root." xor:"source" required:""`

	Structs    StructFile `name:"structs" help:"TOML struct definitions file used to decode values."`
	BTFStructs []string   `name:"btf-struct" help:"Decode with this struct from the object's BTF (repeatable, --object only)."`
}

// pinDir resolves Pinned against the configured bpffs root.
func (f *ObjectFlags) pinDir(cfg config.Config) string {
	if filepath.IsAbs(f.Pinned) {
		return f.Pinned
	}
	return filepath.Join(cfg.BPFFS.Root, f.Pinned)
}

// Open loads the selected object. The caller must close it.
func (f *ObjectFlags) Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*bpfobject.Object, error) {
	lostInterval, err := cfg.Events.LostLogIntervalDuration()
	if err != nil {
		return nil, err
	}

	opts := []bpfobject.Option{
		bpfobject.WithLogger(logger),
		bpfobject.WithEventDefaults(cfg.Events.PageCount, lostInterval),
		bpfobject.WithMountInfo(cfg.BPFFS.MountInfo),
	}
	if f.Structs.Structs != nil {
		opts = append(opts, bpfobject.WithStructs(f.Structs.Structs))
	}
	if len(f.BTFStructs) > 0 {
		opts = append(opts, bpfobject.WithBTFStructs(f.BTFStructs...))
	}

	if f.Object != "" {
		obj, err := bpfobject.Load(ctx, f.Object, opts...)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f.Object, err)
		}
		return obj, nil
	}

	dir := f.pinDir(cfg)
	obj, err := bpfobject.LoadPinned(ctx, dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("open pinned maps in %s: %w", dir, err)
	}
	return obj, nil
}
