package events

import (
	"fmt"
	"time"

	"github.com/cilium/ebpf/ringbuf"

	"github.com/frobware/go-bpfobject/kernel"
)

// RingBuffer reads a BPF_MAP_TYPE_RINGBUF map. The kernel reports
// drops to the producer, so the lost callback never fires and samples
// carry CPU -1.
type RingBuffer struct {
	buffer
}

// NewRingBuffer returns an unopened buffer over h.
func NewRingBuffer(h kernel.Handle, cfg Config) *RingBuffer {
	return &RingBuffer{buffer: newBuffer("ringbuf", h, cfg, newRingSource)}
}

type ringSource struct {
	r   *ringbuf.Reader
	rec ringbuf.Record
}

func newRingSource(h kernel.Handle, _ int) (source, error) {
	m := h.Raw()
	if m == nil {
		return nil, fmt.Errorf("map %s has no kernel map", h.Name())
	}
	r, err := ringbuf.NewReader(m)
	if err != nil {
		return nil, err
	}
	return &ringSource{r: r}, nil
}

func (s *ringSource) read(out *record) error {
	if err := s.r.ReadInto(&s.rec); err != nil {
		return err
	}
	out.cpu = -1
	out.raw = s.rec.RawSample
	out.lost = 0
	return nil
}

func (s *ringSource) setDeadline(t time.Time) { s.r.SetDeadline(t) }

func (s *ringSource) Close() error { return s.r.Close() }
