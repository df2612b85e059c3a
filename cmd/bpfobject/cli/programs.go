package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/frobware/go-bpfobject/kernel"
)

// ProgramsCmd lists the programs of a loaded object.
type ProgramsCmd struct {
	OutputFlags
	Object string `arg:"" name:"object" help:"eBPF object file to load." type:"existingfile"`
}

// Run executes the programs command.
func (c *ProgramsCmd) Run(cli *CLI, ctx context.Context) error {
	cfg, logger, err := cli.setup()
	if err != nil {
		return err
	}

	flags := ObjectFlags{Object: c.Object}
	obj, err := flags.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer obj.Close()

	var infos []kernel.ProgramInfo
	for _, name := range obj.ProgramNames() {
		info, err := obj.ProgramInfo(name)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}

	output, err := c.render(infos, func(format OutputFormat) (string, error) {
		return FormatProgramList(infos, format)
	})
	if err != nil {
		return err
	}
	return cli.PrintOut(output)
}

// FormatProgramList renders program summaries in the given format.
func FormatProgramList(infos []kernel.ProgramInfo, format OutputFormat) (string, error) {
	if format == OutputFormatJSON {
		if infos == nil {
			infos = []kernel.ProgramInfo{}
		}
		output, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(output) + "\n", nil
	}

	if len(infos) == 0 {
		return "No programs found\n", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-6s %-24s %-16s %-18s %s\n", "ID", "NAME", "TYPE", "TAG", "MAPS")
	for _, p := range infos {
		mapIDs := make([]string, len(p.MapIDs))
		for i, id := range p.MapIDs {
			mapIDs[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(&b, "%-6d %-24s %-16s %-18s %s\n", p.ID, p.Name, p.ProgramType, p.Tag, strings.Join(mapIDs, ","))
	}
	return b.String(), nil
}
