package events

import (
	"log/slog"
	"time"

	"github.com/frobware/go-bpfobject/layout"
)

const (
	// DefaultPageCount is the per-CPU perf buffer size, in pages, used
	// when Open is not given WithPageCount.
	DefaultPageCount = 8

	// DefaultLostLogInterval bounds how often lost samples are logged.
	DefaultLostLogInterval = 10 * time.Second
)

// Config carries what a buffer needs from its owning object.
type Config struct {
	// Structs resolves WithStruct names.
	Structs layout.Registry
	// Logger receives lost-sample warnings and lifecycle records. Nil
	// discards.
	Logger *slog.Logger
	// PageCount overrides DefaultPageCount for Opens that do not set
	// one.
	PageCount int
	// LostLogInterval overrides DefaultLostLogInterval.
	LostLogInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.PageCount == 0 {
		c.PageCount = DefaultPageCount
	}
	if c.LostLogInterval <= 0 {
		c.LostLogInterval = DefaultLostLogInterval
	}
	return c
}

// SampleFunc is called once per sample. Sample.Raw is only valid for
// the duration of the call. A returned error stops the current Poll or
// Consume and is returned from it.
type SampleFunc func(Sample) error

// LostFunc is called when the kernel reports samples dropped on a CPU.
type LostFunc func(cpu int, count uint64)

// Sample is one event read from a buffer.
type Sample struct {
	// CPU the sample was written on. -1 for ring buffers.
	CPU int
	Raw []byte
	// Record is the decoded sample when the buffer was opened with
	// WithStruct, nil otherwise.
	Record *layout.Record
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

type openConfig struct {
	structName string
	pageCount  int
	onLost     LostFunc
}

// WithStruct decodes every sample with the named struct.
func WithStruct(name string) OpenOption {
	return func(c *openConfig) { c.structName = name }
}

// WithPageCount sets the per-CPU buffer size in pages. It must be a
// positive power of two. Ring buffers validate but ignore it; their
// size is fixed by the map definition.
func WithPageCount(n int) OpenOption {
	return func(c *openConfig) { c.pageCount = n }
}

// WithLostFunc sets the callback for dropped samples.
func WithLostFunc(fn LostFunc) OpenOption {
	return func(c *openConfig) { c.onLost = fn }
}

func validPageCount(n int) bool {
	return n > 0 && n&(n-1) == 0
}
