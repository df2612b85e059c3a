package bpfobject

import (
	"log/slog"
	"time"

	"github.com/frobware/go-bpfobject/bpffs"
	"github.com/frobware/go-bpfobject/layout"
)

// Option configures New, Load and LoadPinned.
type Option func(*options)

type options struct {
	structs         layout.Structs
	btfStructs      []string
	logger          *slog.Logger
	pageCount       int
	lostLogInterval time.Duration
	mountInfoPath   string
}

func newOptions(opts []Option) options {
	o := options{mountInfoPath: bpffs.DefaultMountInfoPath}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// WithStructs supplies the struct table. Front-end tables are
// translated to packed layouts; native registries are used as given.
func WithStructs(s layout.Structs) Option {
	return func(o *options) { o.structs = s }
}

// WithBTFStructs builds the struct table from the named structs in the
// object file's BTF. Only Load honours it, and it cannot be combined
// with WithStructs.
func WithBTFStructs(names ...string) Option {
	return func(o *options) { o.btfStructs = append(o.btfStructs, names...) }
}

// WithLogger sets the logger. It is tagged per component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEventDefaults sets the page count used by event buffers opened
// without WithPageCount, and the interval between lost-sample
// warnings. Zero values keep the package defaults.
func WithEventDefaults(pageCount int, lostLogInterval time.Duration) Option {
	return func(o *options) {
		o.pageCount = pageCount
		o.lostLogInterval = lostLogInterval
	}
}

// WithMountInfo overrides the mountinfo file LoadPinned consults.
func WithMountInfo(path string) Option {
	return func(o *options) { o.mountInfoPath = path }
}
