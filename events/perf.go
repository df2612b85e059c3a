package events

import (
	"fmt"
	"time"

	"github.com/cilium/ebpf/perf"
	"golang.org/x/sys/unix"

	"github.com/frobware/go-bpfobject/kernel"
)

// PerfBuffer reads a BPF_MAP_TYPE_PERF_EVENT_ARRAY map. Each CPU gets
// its own ring of PageCount pages.
type PerfBuffer struct {
	buffer
}

// NewPerfBuffer returns an unopened buffer over h.
func NewPerfBuffer(h kernel.Handle, cfg Config) *PerfBuffer {
	return &PerfBuffer{buffer: newBuffer("perf", h, cfg, newPerfSource)}
}

type perfSource struct {
	r   *perf.Reader
	rec perf.Record
}

func newPerfSource(h kernel.Handle, pageCount int) (source, error) {
	m := h.Raw()
	if m == nil {
		return nil, fmt.Errorf("map %s has no kernel map", h.Name())
	}
	r, err := perf.NewReaderWithOptions(m, pageCount*unix.Getpagesize(), perf.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	return &perfSource{r: r}, nil
}

func (s *perfSource) read(out *record) error {
	if err := s.r.ReadInto(&s.rec); err != nil {
		return err
	}
	out.cpu = s.rec.CPU
	out.raw = s.rec.RawSample
	out.lost = s.rec.LostSamples
	return nil
}

func (s *perfSource) setDeadline(t time.Time) { s.r.SetDeadline(t) }

func (s *perfSource) Close() error { return s.r.Close() }
