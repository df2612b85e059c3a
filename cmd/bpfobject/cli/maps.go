package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/frobware/go-bpfobject/kernel"
)

// MapsCmd lists the maps of an object.
type MapsCmd struct {
	ObjectFlags
	OutputFlags
}

// Run executes the maps command.
func (c *MapsCmd) Run(cli *CLI, ctx context.Context) error {
	cfg, logger, err := cli.setup()
	if err != nil {
		return err
	}

	obj, err := c.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer obj.Close()

	var infos []kernel.MapInfo
	for _, name := range obj.MapNames() {
		info, err := obj.MapInfo(name)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}

	output, err := c.render(infos, func(format OutputFormat) (string, error) {
		return FormatMapList(infos, format)
	})
	if err != nil {
		return err
	}
	return cli.PrintOut(output)
}

// FormatMapList renders map summaries in the given format.
func FormatMapList(infos []kernel.MapInfo, format OutputFormat) (string, error) {
	if format == OutputFormatJSON {
		if infos == nil {
			infos = []kernel.MapInfo{}
		}
		output, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(output) + "\n", nil
	}

	if len(infos) == 0 {
		return "No maps found\n", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-6s %-20s %-18s %-6s %-8s %-8s %s\n", "ID", "NAME", "TYPE", "KEYS", "VALUES", "MAX", "PINNED")
	for _, m := range infos {
		id := "-"
		if m.ID != 0 {
			id = fmt.Sprint(m.ID)
		}
		pinned := m.PinnedPath
		if pinned == "" {
			pinned = "-"
		}
		fmt.Fprintf(&b, "%-6s %-20s %-18s %-6d %-8d %-8d %s\n",
			id, m.Name, m.Type, m.KeySize, m.ValueSize, m.MaxEntries, pinned)
	}
	return b.String(), nil
}
