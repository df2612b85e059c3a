package kernel

import (
	"fmt"

	"github.com/cilium/ebpf"
)

// ProgramInfo summarises a loaded program as the kernel reports it.
// Fields the kernel does not report are left zero.
type ProgramInfo struct {
	// Name is the program's name in the object. The kernel's copy is
	// truncated to 15 bytes.
	Name        string `json:"name"`
	ProgramType string `json:"program_type"`
	ID          uint32 `json:"id,omitempty"`
	Tag         string `json:"tag,omitempty"`

	MapIDs               []uint32 `json:"map_ids,omitempty"`
	JitedSize            uint32   `json:"jited_size,omitempty"`
	VerifiedInstructions uint32   `json:"verified_insns,omitempty"`
}

// ProgramSummary queries the kernel for p.
func ProgramSummary(name string, p *ebpf.Program) (ProgramInfo, error) {
	info, err := p.Info()
	if err != nil {
		return ProgramInfo{Name: name}, fmt.Errorf("program info for %s: %w", name, err)
	}

	pi := ProgramInfo{
		Name:        name,
		ProgramType: info.Type.String(),
		Tag:         info.Tag,
	}
	if id, ok := info.ID(); ok {
		pi.ID = uint32(id)
	}
	// Map IDs (available from kernel 4.15)
	if ids, ok := info.MapIDs(); ok {
		pi.MapIDs = make([]uint32, len(ids))
		for i, id := range ids {
			pi.MapIDs[i] = uint32(id)
		}
	}
	// Error indicates restricted or unsupported
	if n, err := info.JitedSize(); err == nil {
		pi.JitedSize = n
	}
	if n, ok := info.VerifiedInstructions(); ok {
		pi.VerifiedInstructions = n
	}
	return pi, nil
}
