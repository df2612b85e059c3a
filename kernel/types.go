package kernel

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// MapTypeCode is the kernel's numeric map type as defined by the BPF
// UAPI (enum bpf_map_type). Values must match the kernel exactly; a
// wrong code selects the wrong accessor without any error.
type MapTypeCode uint32

const (
	MapTypeUnspec         MapTypeCode = unix.BPF_MAP_TYPE_UNSPEC
	MapTypeHash           MapTypeCode = unix.BPF_MAP_TYPE_HASH
	MapTypeArray          MapTypeCode = unix.BPF_MAP_TYPE_ARRAY
	MapTypeProgArray      MapTypeCode = unix.BPF_MAP_TYPE_PROG_ARRAY
	MapTypePerfEventArray MapTypeCode = unix.BPF_MAP_TYPE_PERF_EVENT_ARRAY
	MapTypePerCPUHash     MapTypeCode = unix.BPF_MAP_TYPE_PERCPU_HASH
	MapTypePerCPUArray    MapTypeCode = unix.BPF_MAP_TYPE_PERCPU_ARRAY
	MapTypeStackTrace     MapTypeCode = unix.BPF_MAP_TYPE_STACK_TRACE
	MapTypeLRUHash        MapTypeCode = unix.BPF_MAP_TYPE_LRU_HASH
	MapTypeLPMTrie        MapTypeCode = unix.BPF_MAP_TYPE_LPM_TRIE
	MapTypeQueue          MapTypeCode = unix.BPF_MAP_TYPE_QUEUE
	MapTypeStack          MapTypeCode = unix.BPF_MAP_TYPE_STACK
	MapTypeRingBuf        MapTypeCode = unix.BPF_MAP_TYPE_RINGBUF
)

var mapTypeNames = map[MapTypeCode]string{
	MapTypeUnspec:         "unspec",
	MapTypeHash:           "hash",
	MapTypeArray:          "array",
	MapTypeProgArray:      "prog_array",
	MapTypePerfEventArray: "perf_event_array",
	MapTypePerCPUHash:     "percpu_hash",
	MapTypePerCPUArray:    "percpu_array",
	MapTypeStackTrace:     "stack_trace",
	MapTypeLRUHash:        "lru_hash",
	MapTypeLPMTrie:        "lpm_trie",
	MapTypeQueue:          "queue",
	MapTypeStack:          "stack",
	MapTypeRingBuf:        "ringbuf",
}

// String returns the lowercase UAPI name without the BPF_MAP_TYPE_
// prefix, or "map_type(N)" for codes not listed here.
func (c MapTypeCode) String() string {
	if name, ok := mapTypeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("map_type(%d)", uint32(c))
}

// MapType is a kernel BPF map type name.
// Always lowercase. Use NewMapType to construct.
type MapType string

// NewMapType creates a MapType from a string, normalising to lowercase.
func NewMapType(s string) MapType {
	return MapType(strings.ToLower(s))
}

func (t MapType) String() string { return string(t) }

// Code returns the numeric code for a known map type name.
func (t MapType) Code() (MapTypeCode, bool) {
	for code, name := range mapTypeNames {
		if name == string(t) {
			return code, true
		}
	}
	return 0, false
}
