package bpffs

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
)

// Pin is a pinned object in a scanned directory. Name is the file
// name, which by convention is the map's name in its object.
type Pin struct {
	Path string
	Name string
}

// Scanner lists pinned objects in one bpffs directory, the layout used
// when maps are pinned by name (e.g. /sys/fs/bpf/<object>/<map>).
type Scanner struct {
	dir         string
	onMalformed func(path string, err error)
}

// NewScanner creates a Scanner for dir.
func NewScanner(dir string) *Scanner {
	return &Scanner{dir: dir}
}

// Dir is the scanned directory.
func (s *Scanner) Dir() string { return s.dir }

// WithOnMalformed sets a callback for entries that cannot be pins.
// The callback receives the path and the reason. Returns the Scanner
// for chaining.
func (s *Scanner) WithOnMalformed(f func(path string, err error)) *Scanner {
	s.onMalformed = f
	return s
}

func (s *Scanner) reportMalformed(path string, err error) {
	if s.onMalformed != nil {
		s.onMalformed(path, err)
	}
}

// Pins returns an iterator over the pins directly in the scanned
// directory, in name order. Subdirectories are not descended into.
// Errors are yielded only for failures that prevent enumeration.
// Malformed entries are skipped and reported via OnMalformed.
func (s *Scanner) Pins(ctx context.Context) iter.Seq2[Pin, error] {
	return func(yield func(Pin, error) bool) {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			yield(Pin{}, fmt.Errorf("read dir %s: %w", s.dir, err))
			return
		}

		for _, entry := range entries {
			if ctx.Err() != nil {
				yield(Pin{}, ctx.Err())
				return
			}

			if entry.IsDir() {
				continue
			}

			name := entry.Name()
			path := filepath.Join(s.dir, name)
			if !entry.Type().IsRegular() {
				s.reportMalformed(path, fmt.Errorf("not a pin: file mode %s", entry.Type()))
				continue
			}

			if !yield(Pin{Path: path, Name: name}, nil) {
				return
			}
		}
	}
}
