// Package kernel contains the kernel-facing map surface: the handle
// interface every accessor is built on, the numeric map type codes,
// and read-only summaries of maps as observed from the kernel.
//
// Map operations are passed straight through to cilium/ebpf. Errors
// are returned unchanged and no atomicity beyond what the kernel map
// type provides is implied.
package kernel

import (
	"errors"
	"fmt"

	"github.com/cilium/ebpf"
)

// Handle is a reference to one kernel map.
type Handle interface {
	// Name is the map's name within its object.
	Name() string
	// Type is the kernel-reported map type.
	Type() MapTypeCode
	KeySize() uint32
	ValueSize() uint32
	MaxEntries() uint32

	Lookup(key, valueOut any) error
	Update(key, value any, flags ebpf.MapUpdateFlags) error
	Delete(key any) error
	// NextKey stores the key following key in nextKeyOut. A nil key
	// returns the first key. ebpf.ErrKeyNotExist marks the end.
	NextKey(key, nextKeyOut any) error

	// Raw returns the underlying map for operations this interface
	// does not model. It is nil for handles not backed by the kernel.
	Raw() *ebpf.Map
}

// MapHandle is a Handle backed by a cilium/ebpf map.
type MapHandle struct {
	name string
	m    *ebpf.Map
}

var _ Handle = (*MapHandle)(nil)

// NewHandle wraps m under the given name.
func NewHandle(name string, m *ebpf.Map) *MapHandle {
	return &MapHandle{name: name, m: m}
}

func (h *MapHandle) Name() string       { return h.name }
func (h *MapHandle) Type() MapTypeCode  { return MapTypeCode(h.m.Type()) }
func (h *MapHandle) KeySize() uint32    { return h.m.KeySize() }
func (h *MapHandle) ValueSize() uint32  { return h.m.ValueSize() }
func (h *MapHandle) MaxEntries() uint32 { return h.m.MaxEntries() }
func (h *MapHandle) Raw() *ebpf.Map     { return h.m }

func (h *MapHandle) Lookup(key, valueOut any) error {
	return h.m.Lookup(key, valueOut)
}

func (h *MapHandle) Update(key, value any, flags ebpf.MapUpdateFlags) error {
	return h.m.Update(key, value, flags)
}

func (h *MapHandle) Delete(key any) error {
	return h.m.Delete(key)
}

func (h *MapHandle) NextKey(key, nextKeyOut any) error {
	return h.m.NextKey(key, nextKeyOut)
}

// Close releases the map's file descriptor.
func (h *MapHandle) Close() error {
	return h.m.Close()
}

// Handle returns h itself.
func (h *MapHandle) Handle() Handle { return h }

// MapInfo summarises a map for listing.
type MapInfo struct {
	Name       string  `json:"name"`
	Type       MapType `json:"map_type"`
	TypeCode   uint32  `json:"map_type_code"`
	KeySize    uint32  `json:"key_size"`
	ValueSize  uint32  `json:"value_size"`
	MaxEntries uint32  `json:"max_entries"`

	// ID is the kernel map ID. Zero when unavailable.
	ID uint32 `json:"id,omitempty"`
	// PinnedPath is set for maps opened from bpffs.
	PinnedPath string `json:"pinned_path,omitempty"`
}

// Info summarises h. The kernel ID is filled in for handles backed by
// the kernel when the kernel reports one.
func Info(h Handle) MapInfo {
	info := MapInfo{
		Name:       h.Name(),
		Type:       NewMapType(h.Type().String()),
		TypeCode:   uint32(h.Type()),
		KeySize:    h.KeySize(),
		ValueSize:  h.ValueSize(),
		MaxEntries: h.MaxEntries(),
	}
	if raw := h.Raw(); raw != nil {
		if ki, err := raw.Info(); err == nil {
			if id, ok := ki.ID(); ok {
				info.ID = uint32(id)
			}
		}
	}
	return info
}

// Walk calls fn for every entry of h, passing raw key and value bytes.
// Entries deleted concurrently are skipped. Iteration stops at the
// first error returned by fn.
//
// Walk is not suitable for per-CPU maps, whose values are one slot per
// CPU.
func Walk(h Handle, fn func(key, value []byte) error) error {
	key := make([]byte, h.KeySize())
	next := make([]byte, h.KeySize())

	var prev any // nil requests the first key
	for {
		err := h.NextKey(prev, &next)
		if errors.Is(err, ebpf.ErrKeyNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("next key of %s: %w", h.Name(), err)
		}
		copy(key, next)

		value := make([]byte, h.ValueSize())
		if err := h.Lookup(key, &value); err != nil {
			if errors.Is(err, ebpf.ErrKeyNotExist) {
				prev = key
				continue
			}
			return fmt.Errorf("lookup in %s: %w", h.Name(), err)
		}

		if err := fn(append([]byte(nil), key...), value); err != nil {
			return err
		}
		prev = key
	}
}
