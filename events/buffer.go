// Package events streams samples from perf event arrays and ring
// buffers to user-space callbacks.
//
// A buffer starts unopened. Open binds the callbacks and creates the
// kernel reader; Poll and Consume then run synchronously on the
// caller's goroutine. Buffers are not safe for concurrent use.
package events

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/frobware/go-bpfobject/kernel"
	"github.com/frobware/go-bpfobject/layout"
	"github.com/frobware/go-bpfobject/logging"
)

// record is one read from a source. raw is only valid until the next
// read.
type record struct {
	cpu  int
	raw  []byte
	lost uint64
}

// source is the kernel reader behind a buffer. read returns
// os.ErrDeadlineExceeded once the deadline passes with nothing
// pending.
type source interface {
	read(*record) error
	setDeadline(time.Time)
	Close() error
}

type sourceFunc func(h kernel.Handle, pageCount int) (source, error)

// buffer is the state shared by PerfBuffer and RingBuffer.
type buffer struct {
	kind      string
	handle    kernel.Handle
	cfg       Config
	logger    *slog.Logger
	newSource sourceFunc

	src       source
	pageCount int
	decode    *layout.Struct
	onSample  SampleFunc
	onLost    LostFunc
	lost      uint64
	lostLog   *rate.Limiter
	rec       record
}

func newBuffer(kind string, h kernel.Handle, cfg Config, fn sourceFunc) buffer {
	cfg = cfg.withDefaults()
	return buffer{
		kind:      kind,
		handle:    h,
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "events", "map", h.Name(), "kind", kind),
		newSource: fn,
		lostLog:   rate.NewLimiter(rate.Every(cfg.LostLogInterval), 1),
	}
}

// Handle returns the map the buffer reads from.
func (b *buffer) Handle() kernel.Handle { return b.handle }

// Opened reports whether Poll and Consume may be called.
func (b *buffer) Opened() bool { return b.src != nil }

// PageCount is the page count of the open reader, or zero.
func (b *buffer) PageCount() int { return b.pageCount }

// Lost is the total number of samples the kernel reported as dropped
// since the buffer was created.
func (b *buffer) Lost() uint64 { return b.lost }

// Open binds fn and creates the kernel reader. Opening an open buffer
// rebinds the callbacks and decode struct; the reader is only
// re-created when the page count changes. If Open fails the buffer
// keeps its previous reader, callbacks and page count.
func (b *buffer) Open(fn SampleFunc, opts ...OpenOption) error {
	if fn == nil {
		return fmt.Errorf("event buffer %q: nil sample callback", b.handle.Name())
	}

	oc := openConfig{pageCount: b.cfg.PageCount}
	for _, opt := range opts {
		opt(&oc)
	}
	if !validPageCount(oc.pageCount) {
		return &PageCountError{Count: oc.pageCount}
	}

	var decode *layout.Struct
	if oc.structName != "" {
		s, ok := b.cfg.Structs.Lookup(oc.structName)
		if !ok {
			return &UnknownStructError{Map: b.handle.Name(), Struct: oc.structName}
		}
		decode = s
	}

	if b.src == nil || b.pageCount != oc.pageCount {
		// The new reader is created before the old one is closed so a
		// failed reopen leaves the buffer as it was.
		src, err := b.newSource(b.handle, oc.pageCount)
		if err != nil {
			return fmt.Errorf("opening %s reader for %s: %w", b.kind, b.handle.Name(), err)
		}
		if old := b.src; old != nil {
			if err := old.Close(); err != nil {
				b.logger.Warn("closing replaced reader", "pages", b.pageCount, "error", err)
			}
			b.logger.Debug("resized event buffer", "from", b.pageCount, "to", oc.pageCount)
		} else {
			b.logger.Debug("opened event buffer", "pages", oc.pageCount)
		}
		b.src = src
		b.pageCount = oc.pageCount
	} else {
		b.logger.Debug("rebound event buffer callbacks")
	}

	b.decode = decode
	b.onSample = fn
	b.onLost = oc.onLost
	if b.onLost == nil {
		b.onLost = func(int, uint64) {}
	}
	return nil
}

// Poll waits for samples and delivers them. A negative timeout blocks
// until at least one record arrives, zero only delivers what is already
// pending, and a positive timeout bounds the wait. Once a record
// arrives the rest of the pending records are drained without further
// waiting. Poll returns the number of samples delivered, which is zero
// on timeout.
func (b *buffer) Poll(timeout time.Duration) (int, error) {
	if b.src == nil {
		return 0, &NotInitializedError{Map: b.handle.Name()}
	}
	switch {
	case timeout < 0:
		b.src.setDeadline(time.Time{})
	default:
		b.src.setDeadline(time.Now().Add(timeout))
	}
	return b.drain(timeout != 0)
}

// Consume delivers every pending sample without blocking.
func (b *buffer) Consume() (int, error) {
	if b.src == nil {
		return 0, &NotInitializedError{Map: b.handle.Name()}
	}
	b.src.setDeadline(time.Now())
	return b.drain(false)
}

// Close releases the reader. A closed buffer may be opened again.
func (b *buffer) Close() error {
	if b.src == nil {
		return nil
	}
	err := b.src.Close()
	b.src = nil
	b.pageCount = 0
	if err != nil {
		return fmt.Errorf("closing reader for %s: %w", b.handle.Name(), err)
	}
	return nil
}

func (b *buffer) drain(waiting bool) (int, error) {
	n := 0
	for {
		err := b.src.read(&b.rec)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("reading %s: %w", b.handle.Name(), err)
		}
		if waiting {
			// Something arrived; take what is pending and return.
			b.src.setDeadline(time.Now())
			waiting = false
		}

		if b.rec.lost > 0 {
			b.recordLost(b.rec.cpu, b.rec.lost)
			continue
		}

		sample := Sample{CPU: b.rec.cpu, Raw: b.rec.raw}
		if b.decode != nil {
			r, err := layout.Decode(b.decode, b.rec.raw)
			if err != nil {
				return n, fmt.Errorf("decoding sample from %s: %w", b.handle.Name(), err)
			}
			sample.Record = &r
		}
		logging.Trace(b.logger, "delivering sample", "cpu", b.rec.cpu, "bytes", len(b.rec.raw))
		if err := b.onSample(sample); err != nil {
			return n, err
		}
		n++
	}
}

func (b *buffer) recordLost(cpu int, count uint64) {
	b.lost += count
	b.onLost(cpu, count)
	if b.lostLog.Allow() {
		b.logger.Warn("samples lost", "cpu", cpu, "count", count, "total", b.lost)
	}
}
