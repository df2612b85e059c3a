// Package bpfobject presents a loaded eBPF object to user space: its
// maps behind type-appropriate accessors, its event buffers, and the
// packed struct layouts used to decode what the kernel writes.
package bpfobject

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/cilium/ebpf"
	"github.com/hashicorp/go-multierror"

	"github.com/frobware/go-bpfobject/events"
	"github.com/frobware/go-bpfobject/kernel"
	"github.com/frobware/go-bpfobject/layout"
)

// Accessor is what Object.Map returns for a map: a *events.PerfBuffer,
// a *events.RingBuffer, or the map's kernel.Handle. Every accessor
// exposes the raw handle.
type Accessor interface {
	Handle() kernel.Handle
}

// handleAccessor lets a Handle that does not implement Accessor be
// returned from Map.
type handleAccessor struct {
	h kernel.Handle
}

func (a handleAccessor) Handle() kernel.Handle { return a.h }

// Object is a loaded eBPF object.
type Object struct {
	coll     Collection
	structs  layout.Registry
	logger   *slog.Logger
	eventCfg events.Config

	mu      sync.Mutex
	entries map[string]*accessorEntry
	closed  bool
}

// accessorEntry builds one map's accessor at most once at a time.
type accessorEntry struct {
	once sync.Once
	acc  Accessor
	err  error
}

// New wraps coll. Struct options are resolved here; a translation
// failure is returned and the object is not created. New does not
// close coll on failure.
func New(coll Collection, opts ...Option) (*Object, error) {
	o := newOptions(opts)
	if len(o.btfStructs) > 0 {
		return nil, errors.New("WithBTFStructs requires Load")
	}
	return newObject(coll, o)
}

func newObject(coll Collection, o options) (*Object, error) {
	logger := o.logger.With("component", "object")

	registry, err := layout.Resolve(o.structs, layout.NewTranslator(o.logger))
	if err != nil {
		return nil, fmt.Errorf("resolving structs: %w", err)
	}

	obj := &Object{
		coll:    coll,
		structs: registry,
		logger:  logger,
		eventCfg: events.Config{
			Structs:         registry,
			Logger:          o.logger,
			PageCount:       o.pageCount,
			LostLogInterval: o.lostLogInterval,
		},
		entries: make(map[string]*accessorEntry),
	}
	logger.Debug("object ready", "maps", len(coll.MapNames()), "programs", len(coll.ProgramNames()), "structs", len(registry))
	return obj, nil
}

// Map returns the accessor for the named map. The first call queries
// the map's kernel type once: perf event arrays get an unopened
// *events.PerfBuffer, ring buffers an unopened *events.RingBuffer, and
// every other map its kernel.Handle unchanged. Later calls return the
// same value.
//
// Ring buffers are wrapped rather than returned as plain handles since
// they support no element operations; the wrapper still exposes the
// handle through Handle.
//
// Concurrent first calls for one name construct the accessor once.
// A failed construction is not remembered; the next call retries.
func (o *Object) Map(name string) (Accessor, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	e, ok := o.entries[name]
	if !ok {
		e = &accessorEntry{}
		o.entries[name] = e
	}
	o.mu.Unlock()

	e.once.Do(func() {
		e.acc, e.err = o.newAccessor(name)
	})
	if e.err != nil {
		o.mu.Lock()
		if o.entries[name] == e {
			delete(o.entries, name)
		}
		o.mu.Unlock()
		return nil, e.err
	}
	return e.acc, nil
}

func (o *Object) newAccessor(name string) (Accessor, error) {
	h, ok := o.coll.Map(name)
	if !ok {
		return nil, &MapNotFoundError{Name: name}
	}

	code := h.Type()
	o.logger.Debug("creating accessor", "map", name, "type", code)

	switch code {
	case kernel.MapTypePerfEventArray:
		return events.NewPerfBuffer(h, o.eventCfg), nil
	case kernel.MapTypeRingBuf:
		return events.NewRingBuffer(h, o.eventCfg), nil
	default:
		if a, ok := h.(Accessor); ok {
			return a, nil
		}
		return handleAccessor{h}, nil
	}
}

// Handle returns the kernel handle of the named map, whatever its type.
func (o *Object) Handle(name string) (kernel.Handle, error) {
	acc, err := o.Map(name)
	if err != nil {
		return nil, err
	}
	return acc.Handle(), nil
}

// PerfBuffer returns the named map's perf buffer.
func (o *Object) PerfBuffer(name string) (*events.PerfBuffer, error) {
	acc, err := o.Map(name)
	if err != nil {
		return nil, err
	}
	pb, ok := acc.(*events.PerfBuffer)
	if !ok {
		return nil, &MapTypeError{Name: name, Want: kernel.MapTypePerfEventArray, Got: acc.Handle().Type()}
	}
	return pb, nil
}

// RingBuffer returns the named map's ring buffer.
func (o *Object) RingBuffer(name string) (*events.RingBuffer, error) {
	acc, err := o.Map(name)
	if err != nil {
		return nil, err
	}
	rb, ok := acc.(*events.RingBuffer)
	if !ok {
		return nil, &MapTypeError{Name: name, Want: kernel.MapTypeRingBuf, Got: acc.Handle().Type()}
	}
	return rb, nil
}

// MapNames returns the object's map names in sorted order, without
// internal maps such as ".rodata".
func (o *Object) MapNames() []string {
	return slices.DeleteFunc(o.coll.MapNames(), func(name string) bool {
		return strings.HasPrefix(name, ".")
	})
}

// MapInfo summarises the named map.
func (o *Object) MapInfo(name string) (kernel.MapInfo, error) {
	h, err := o.Handle(name)
	if err != nil {
		return kernel.MapInfo{}, err
	}
	info := kernel.Info(h)
	if p, ok := o.coll.(pinner); ok {
		info.PinnedPath = p.PinPath(name)
	}
	return info, nil
}

// ProgramNames returns the object's program names in sorted order.
func (o *Object) ProgramNames() []string {
	return o.coll.ProgramNames()
}

// Program returns the named program.
func (o *Object) Program(name string) (*ebpf.Program, bool) {
	return o.coll.Program(name)
}

// ProgramInfo summarises the named program.
func (o *Object) ProgramInfo(name string) (kernel.ProgramInfo, error) {
	p, ok := o.coll.Program(name)
	if !ok {
		return kernel.ProgramInfo{}, &ProgramNotFoundError{Name: name}
	}
	return kernel.ProgramSummary(name, p)
}

// Structs returns the object's packed struct layouts.
func (o *Object) Structs() layout.Registry {
	return o.structs
}

// Close closes every event buffer handed out and then the collection.
// Accessors obtained earlier must not be used afterwards.
func (o *Object) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	entries := o.entries
	o.entries = nil
	o.mu.Unlock()

	var result *multierror.Error
	for name, e := range entries {
		// Waits for a construction still in flight.
		e.once.Do(func() {})

		var err error
		switch acc := e.acc.(type) {
		case *events.PerfBuffer:
			err = acc.Close()
		case *events.RingBuffer:
			err = acc.Close()
		default:
			// Handles belong to the collection.
			continue
		}
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("closing buffer %s: %w", name, err))
		}
	}
	if err := o.coll.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
