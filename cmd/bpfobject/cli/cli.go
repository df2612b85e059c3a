// Package cli provides the Kong-based command-line interface for bpfobject.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"

	"github.com/alecthomas/kong"

	"github.com/frobware/go-bpfobject/config"
	"github.com/frobware/go-bpfobject/logging"
)

// CLI is the root command structure for bpfobject.
type CLI struct {
	// Out receives command output. Nil means os.Stdout.
	Out io.Writer `kong:"-"`

	Config string `name:"config" help:"Config file path." default:"${default_config_path}"`
	Log    string `name:"log" help:"Log spec (e.g., 'info,events=debug'). Overrides ${log_env}."`

	Maps     MapsCmd     `cmd:"" help:"List the maps of an object or pin directory."`
	Programs ProgramsCmd `cmd:"" help:"List the programs of an object file."`
	Dump     DumpCmd     `cmd:"" help:"Print every entry of a map."`
	Events   EventsCmd   `cmd:"" help:"Read samples from a perf event array or ring buffer."`
	Structs  StructsCmd  `cmd:"" help:"Show the packed layouts in a struct definitions file."`
	Sessions SessionsCmd `cmd:"" help:"Inspect recorded event sessions."`
}

// KongOptions returns the Kong configuration options for the CLI.
func KongOptions() []kong.Option {
	return []kong.Option{
		kong.Name("bpfobject"),
		kong.Description("Inspect eBPF object maps and read their event buffers."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.TypeMapper(reflect.TypeOf(StructFile{}), structFileMapper()),
		kong.Vars{
			"default_config_path": config.DefaultConfigPath,
			"log_env":             logging.EnvVar,
		},
	}
}

// LoadConfig loads the configuration from the config file path.
func (c *CLI) LoadConfig() (config.Config, error) {
	return config.Load(c.Config)
}

// Logger creates a logger for CLI commands. Log output goes to stderr
// so it never mixes with command output.
func (c *CLI) Logger(cfg config.Config) (*slog.Logger, error) {
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	opts := logging.Options{
		CLISpec:    c.Log,
		EnvSpec:    os.Getenv(logging.EnvVar),
		ConfigSpec: cfg.Logging.ToSpec(),
		Format:     format,
		Output:     os.Stderr,
	}

	return logging.New(opts)
}

// setup loads the config and builds the logger every command needs.
// The logger is untagged; packages add their own component.
func (c *CLI) setup() (config.Config, *slog.Logger, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := c.Logger(cfg)
	if err != nil {
		return cfg, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func (c *CLI) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// WriteOut writes p to the output in full. A short write without an
// error is reported as io.ErrShortWrite.
func (c *CLI) WriteOut(p []byte) error {
	n, err := c.out().Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

// PrintOut writes s to the output.
func (c *CLI) PrintOut(s string) error {
	return c.WriteOut([]byte(s))
}

// PrintOutf formats according to format and writes to the output.
func (c *CLI) PrintOutf(format string, args ...any) error {
	return c.PrintOut(fmt.Sprintf(format, args...))
}
