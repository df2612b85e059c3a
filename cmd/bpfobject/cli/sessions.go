package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/frobware/go-bpfobject/recorder/sqlite"
)

// SessionsCmd inspects recorded event sessions.
type SessionsCmd struct {
	List   SessionsListCmd   `cmd:"" default:"withargs" help:"List recorded sessions."`
	Show   SessionsShowCmd   `cmd:"" help:"Show the samples of a session."`
	Delete SessionsDeleteCmd `cmd:"" help:"Delete a session and its samples."`
}

// DBFlag selects the recorder database.
type DBFlag struct {
	DB string `name:"db" help:"Recorder database path. Defaults to the config value."`
}

func (f *DBFlag) open(ctx context.Context, cli *CLI) (*sqlite.Recorder, error) {
	cfg, logger, err := cli.setup()
	if err != nil {
		return nil, err
	}
	path := f.DB
	if path == "" {
		path = cfg.Recorder.DBPath
	}
	return sqlite.New(ctx, path, logger)
}

// SessionsListCmd lists recorded sessions.
type SessionsListCmd struct {
	DBFlag
	OutputFlags
}

// Run executes the sessions list command.
func (c *SessionsListCmd) Run(cli *CLI, ctx context.Context) error {
	rec, err := c.open(ctx, cli)
	if err != nil {
		return err
	}
	defer rec.Close()

	sessions, err := rec.Sessions(ctx)
	if err != nil {
		return err
	}

	switch c.Format() {
	case OutputFormatJSON:
		return printJSON(cli, sessions)
	case OutputFormatJSONPath:
		output, err := FormatJSONPath(sessions, c.JSONPathExpr())
		if err != nil {
			return err
		}
		return cli.PrintOut(output)
	}
	if len(sessions) == 0 {
		return cli.PrintOut("No sessions found\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-20s %-16s %-8s %-6s %s\n", "ID", "MAP", "STRUCT", "SAMPLES", "LOST", "STARTED")
	for _, s := range sessions {
		structName := s.Struct
		if structName == "" {
			structName = "-"
		}
		fmt.Fprintf(&b, "%-36s %-20s %-16s %-8d %-6d %s\n",
			s.ID, s.Map, structName, s.Samples, s.Lost, s.StartedAt.Format(time.RFC3339))
	}
	return cli.PrintOut(b.String())
}

// SessionsShowCmd prints the samples of one session.
type SessionsShowCmd struct {
	DBFlag
	OutputFlags
	ID string `arg:"" name:"session-id" help:"Session ID."`
}

// Run executes the sessions show command.
func (c *SessionsShowCmd) Run(cli *CLI, ctx context.Context) error {
	rec, err := c.open(ctx, cli)
	if err != nil {
		return err
	}
	defer rec.Close()

	samples, err := rec.Samples(ctx, c.ID)
	if err != nil {
		return err
	}

	switch c.Format() {
	case OutputFormatJSON:
		return printJSON(cli, samples)
	case OutputFormatJSONPath:
		output, err := FormatJSONPath(samples, c.JSONPathExpr())
		if err != nil {
			return err
		}
		return cli.PrintOut(output)
	}
	if len(samples) == 0 {
		return cli.PrintOut("No samples\n")
	}

	var b strings.Builder
	for _, s := range samples {
		body := s.Decoded
		if body == "" {
			body = hex.EncodeToString(s.Raw)
		}
		fmt.Fprintf(&b, "%-6d %-4d %s %s\n", s.Seq, s.CPU, s.RecordedAt.Format(time.RFC3339Nano), body)
	}
	return cli.PrintOut(b.String())
}

// SessionsDeleteCmd deletes a session.
type SessionsDeleteCmd struct {
	DBFlag
	ID string `arg:"" name:"session-id" help:"Session ID."`
}

// Run executes the sessions delete command.
func (c *SessionsDeleteCmd) Run(cli *CLI, ctx context.Context) error {
	rec, err := c.open(ctx, cli)
	if err != nil {
		return err
	}
	defer rec.Close()

	if err := rec.DeleteSession(ctx, c.ID); err != nil {
		return err
	}
	return cli.PrintOutf("Deleted session %s\n", c.ID)
}

// printJSON writes v as an indented JSON array, empty when v is nil.
func printJSON[T any](cli *CLI, v []T) error {
	if v == nil {
		v = []T{}
	}
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return cli.WriteOut(append(output, '\n'))
}
