package bpfobject

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cilium/ebpf"
	"github.com/hashicorp/go-multierror"

	"github.com/frobware/go-bpfobject/kernel"
)

// Collection is a set of loaded maps and programs.
// *ebpf.Collection backs it via Load; LoadPinned backs it with maps
// opened from bpffs.
type Collection interface {
	// Map returns the named map, or false.
	Map(name string) (kernel.Handle, bool)
	MapNames() []string
	Program(name string) (*ebpf.Program, bool)
	ProgramNames() []string
	Close() error
}

// pinner is implemented by collections whose maps came from bpffs.
type pinner interface {
	PinPath(name string) string
}

// ebpfCollection adapts *ebpf.Collection. Handles are created once per
// map so repeated lookups return the same value.
type ebpfCollection struct {
	coll    *ebpf.Collection
	handles map[string]*kernel.MapHandle
}

func newEBPFCollection(coll *ebpf.Collection) *ebpfCollection {
	handles := make(map[string]*kernel.MapHandle, len(coll.Maps))
	for name, m := range coll.Maps {
		handles[name] = kernel.NewHandle(name, m)
	}
	return &ebpfCollection{coll: coll, handles: handles}
}

func (c *ebpfCollection) Map(name string) (kernel.Handle, bool) {
	h, ok := c.handles[name]
	if !ok {
		return nil, false
	}
	return h, true
}

func (c *ebpfCollection) MapNames() []string {
	return slices.Sorted(maps.Keys(c.coll.Maps))
}

func (c *ebpfCollection) Program(name string) (*ebpf.Program, bool) {
	p, ok := c.coll.Programs[name]
	return p, ok
}

func (c *ebpfCollection) ProgramNames() []string {
	return slices.Sorted(maps.Keys(c.coll.Programs))
}

func (c *ebpfCollection) Close() error {
	c.coll.Close()
	return nil
}

// pinnedCollection holds maps opened from a bpffs directory. It has no
// programs.
type pinnedCollection struct {
	handles map[string]*kernel.MapHandle
	paths   map[string]string
}

func (c *pinnedCollection) Map(name string) (kernel.Handle, bool) {
	h, ok := c.handles[name]
	if !ok {
		return nil, false
	}
	return h, true
}

func (c *pinnedCollection) MapNames() []string {
	return slices.Sorted(maps.Keys(c.handles))
}

func (c *pinnedCollection) Program(string) (*ebpf.Program, bool) { return nil, false }

func (c *pinnedCollection) ProgramNames() []string { return nil }

func (c *pinnedCollection) PinPath(name string) string { return c.paths[name] }

func (c *pinnedCollection) Close() error {
	var result *multierror.Error
	for name, h := range c.handles {
		if err := h.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("closing pinned map %s: %w", name, err))
		}
	}
	return result.ErrorOrNil()
}
