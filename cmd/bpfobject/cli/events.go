package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frobware/go-bpfobject/events"
	"github.com/frobware/go-bpfobject/logging"
	"github.com/frobware/go-bpfobject/recorder/sqlite"
)

// EventSource is the part of an event buffer the events command drives.
// *events.PerfBuffer and *events.RingBuffer implement it.
type EventSource interface {
	Open(fn events.SampleFunc, opts ...events.OpenOption) error
	Poll(timeout time.Duration) (int, error)
}

// SampleRecorder stores what a stream delivers. *sqlite.Session
// implements it.
type SampleRecorder interface {
	Record(ctx context.Context, sample events.Sample) error
	RecordLost(ctx context.Context, cpu int, count uint64) error
}

// StreamConfig controls StreamEvents.
type StreamConfig struct {
	// Struct decodes samples when set.
	Struct string
	// PageCount overrides the buffer's default when positive.
	PageCount int
	// Count stops the stream after this many samples when positive.
	Count int
	// PollTimeout bounds each poll so cancellation is noticed.
	PollTimeout time.Duration
	// Recorder, if set, receives every sample and lost report.
	Recorder SampleRecorder
	// Print receives each formatted sample.
	Print  func(string) error
	Logger *slog.Logger
}

var errSampleLimit = errors.New("sample limit reached")

// StreamEvents opens src and polls it until ctx is done or Count
// samples have been delivered. It returns the number of samples
// delivered.
func StreamEvents(ctx context.Context, src EventSource, cfg StreamConfig) (int, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", logging.ComponentCLI)

	// Samples already read are still recorded after cancellation.
	recCtx := context.WithoutCancel(ctx)

	seen := 0
	onSample := func(s events.Sample) error {
		if cfg.Print != nil {
			if err := cfg.Print(FormatSample(s)); err != nil {
				return err
			}
		}
		if cfg.Recorder != nil {
			if err := cfg.Recorder.Record(recCtx, s); err != nil {
				return err
			}
		}
		seen++
		if cfg.Count > 0 && seen >= cfg.Count {
			return errSampleLimit
		}
		return nil
	}
	onLost := func(cpu int, count uint64) {
		if cfg.Recorder == nil {
			return
		}
		if err := cfg.Recorder.RecordLost(recCtx, cpu, count); err != nil {
			logger.Warn("failed to record lost samples", "cpu", cpu, "count", count, "error", err)
		}
	}

	opts := []events.OpenOption{events.WithLostFunc(onLost)}
	if cfg.Struct != "" {
		opts = append(opts, events.WithStruct(cfg.Struct))
	}
	if cfg.PageCount > 0 {
		opts = append(opts, events.WithPageCount(cfg.PageCount))
	}
	if err := src.Open(onSample, opts...); err != nil {
		return 0, err
	}

	for ctx.Err() == nil {
		if _, err := src.Poll(cfg.PollTimeout); err != nil {
			if errors.Is(err, errSampleLimit) {
				break
			}
			return seen, err
		}
	}
	logger.Debug("stream finished", "samples", seen, "reason", context.Cause(ctx))
	return seen, nil
}

// FormatSample renders one sample as a line: the CPU when known, then
// the decoded record or the raw bytes in hex.
func FormatSample(s events.Sample) string {
	body := hex.EncodeToString(s.Raw)
	if s.Record != nil {
		body = s.Record.String()
	}
	if s.CPU < 0 {
		return body + "\n"
	}
	return fmt.Sprintf("cpu %-3d %s\n", s.CPU, body)
}

// EventsCmd reads samples from an event buffer map.
type EventsCmd struct {
	ObjectFlags
	Map       string        `arg:"" name:"map" help:"Perf event array or ring buffer map name."`
	Struct    string        `name:"struct" help:"Decode samples with this struct."`
	PageCount int           `name:"page-count" help:"Per-CPU perf buffer size in pages (power of two). Defaults to the config value."`
	Count     int           `name:"count" short:"n" help:"Stop after this many samples (0 reads until interrupted)."`
	Duration  time.Duration `name:"duration" help:"Stop after this long (0 reads until interrupted)."`
	Record    bool          `name:"record" help:"Store samples in the recorder database."`
	DB        string        `name:"db" help:"Recorder database path. Defaults to the config value."`
}

// Run executes the events command.
func (c *EventsCmd) Run(cli *CLI, ctx context.Context) error {
	cfg, logger, err := cli.setup()
	if err != nil {
		return err
	}
	pollTimeout, err := cfg.Events.PollTimeoutDuration()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if c.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Duration)
		defer cancel()
	}

	obj, err := c.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer obj.Close()

	acc, err := obj.Map(c.Map)
	if err != nil {
		return err
	}
	src, ok := acc.(EventSource)
	if !ok {
		return fmt.Errorf("map %s is %s, not an event buffer", c.Map, acc.Handle().Type())
	}

	sc := StreamConfig{
		Struct:      c.Struct,
		PageCount:   c.PageCount,
		Count:       c.Count,
		PollTimeout: pollTimeout,
		Print:       cli.PrintOut,
		Logger:      logger,
	}

	var session *sqlite.Session
	if c.Record {
		dbPath := c.DB
		if dbPath == "" {
			dbPath = cfg.Recorder.DBPath
		}
		rec, err := sqlite.New(ctx, dbPath, logger)
		if err != nil {
			return err
		}
		defer rec.Close()
		if session, err = rec.StartSession(ctx, c.Map, c.Struct); err != nil {
			return err
		}
		sc.Recorder = session
	}

	n, err := StreamEvents(ctx, src, sc)
	if err != nil {
		return err
	}
	if session != nil {
		fmt.Fprintf(os.Stderr, "recorded %d samples in session %s\n", n, session.ID())
	}
	return nil
}
