package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/frobware/go-bpfobject/kernel"
	"github.com/frobware/go-bpfobject/layout"
)

// DumpCmd prints every entry of a map.
type DumpCmd struct {
	ObjectFlags
	OutputFlags
	Map    string `arg:"" name:"map" help:"Map name."`
	Struct string `name:"struct" help:"Decode values with this struct."`
}

// Entry is one map entry as printed by dump.
type Entry struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Decoded string `json:"decoded,omitempty"`
}

// Run executes the dump command.
func (c *DumpCmd) Run(cli *CLI, ctx context.Context) error {
	cfg, logger, err := cli.setup()
	if err != nil {
		return err
	}

	obj, err := c.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer obj.Close()

	h, err := obj.Handle(c.Map)
	if err != nil {
		return err
	}

	var st *layout.Struct
	if c.Struct != "" {
		var ok bool
		if st, ok = obj.Structs().Lookup(c.Struct); !ok {
			return fmt.Errorf("unknown struct %q", c.Struct)
		}
	}

	entries, err := CollectEntries(h, st)
	if err != nil {
		return fmt.Errorf("dump %s: %w", c.Map, err)
	}

	output, err := c.render(entries, func(format OutputFormat) (string, error) {
		return FormatEntries(entries, format)
	})
	if err != nil {
		return err
	}
	return cli.PrintOut(output)
}

// CollectEntries walks h, decoding values with st when it is non-nil.
// A value too short for st is shown undecoded.
func CollectEntries(h kernel.Handle, st *layout.Struct) ([]Entry, error) {
	var entries []Entry
	err := kernel.Walk(h, func(key, value []byte) error {
		e := Entry{
			Key:   hex.EncodeToString(key),
			Value: hex.EncodeToString(value),
		}
		if st != nil {
			if rec, err := layout.Decode(st, value); err == nil {
				e.Decoded = rec.String()
			}
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// FormatEntries renders map entries in the given format.
func FormatEntries(entries []Entry, format OutputFormat) (string, error) {
	if format == OutputFormatJSON {
		if entries == nil {
			entries = []Entry{}
		}
		output, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(output) + "\n", nil
	}

	if len(entries) == 0 {
		return "No entries\n", nil
	}

	var b strings.Builder
	for _, e := range entries {
		value := e.Value
		if e.Decoded != "" {
			value = e.Decoded
		}
		fmt.Fprintf(&b, "%s: %s\n", e.Key, value)
	}
	return b.String(), nil
}
