// Package bpffs inspects the BPF filesystem: whether a path lives on a
// bpffs mount and which objects are pinned in a directory.
package bpffs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultMountInfoPath is the path to the mountinfo file.
	DefaultMountInfoPath = "/proc/self/mountinfo"

	// DefaultRoot is where distributions mount bpffs.
	DefaultRoot = "/sys/fs/bpf"

	// defaultScanMaxLineLen is the maximum line length for
	// scanning mountinfo. Some nodes/runtimes can produce long
	// lines; this prevents ErrTooLong.
	defaultScanMaxLineLen = 1024 * 1024
)

// Root represents a bpffs mount point path.
type Root string

// String returns the path as a string.
func (r Root) String() string { return string(r) }

// mountPoints returns every bpf mount point listed in mountInfoPath.
//
// The mountinfo format is documented in proc(5). Each line contains:
//
//	mount_id parent_id major:minor root mount_point options [optional_fields...] - fstype source super_options
//
// Example bpffs entry:
//
//	30 22 0:27 / /sys/fs/bpf rw,nosuid shared:9 - bpf bpf rw,mode=700
//
// The separator " - " must be found by string search rather than by
// field position because optional fields (like "shared:N") may sit
// between the mount options and the separator.
func mountPoints(mountInfoPath string) ([]Root, error) {
	file, err := os.Open(mountInfoPath)
	if err != nil {
		return nil, fmt.Errorf("opening mountinfo: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), defaultScanMaxLineLen)

	var roots []Root
	for scanner.Scan() {
		line := scanner.Text()

		sepIdx := strings.Index(line, " - ")
		if sepIdx == -1 {
			continue
		}

		fields := strings.Fields(line[:sepIdx])
		if len(fields) < 5 {
			continue
		}
		suffixFields := strings.Fields(line[sepIdx+3:])
		if len(suffixFields) < 1 {
			continue
		}

		if suffixFields[0] == "bpf" {
			roots = append(roots, Root(fields[4]))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading mountinfo: %w", err)
	}

	return roots, nil
}

// IsMounted reports whether a bpffs is mounted exactly at mountPoint.
func IsMounted(mountInfoPath, mountPoint string) (bool, error) {
	roots, err := mountPoints(mountInfoPath)
	if err != nil {
		return false, err
	}
	for _, r := range roots {
		if string(r) == mountPoint {
			return true, nil
		}
	}
	return false, nil
}

// FindMount returns the bpffs mount point containing path. The longest
// matching mount point wins. ok is false when path is not on a bpffs.
func FindMount(mountInfoPath, path string) (root Root, ok bool, err error) {
	roots, err := mountPoints(mountInfoPath)
	if err != nil {
		return "", false, err
	}

	path = filepath.Clean(path)
	for _, r := range roots {
		mp := filepath.Clean(string(r))
		if path != mp && !strings.HasPrefix(path, mp+string(filepath.Separator)) && mp != "/" {
			continue
		}
		if len(mp) > len(root) {
			root, ok = Root(mp), true
		}
	}
	return root, ok, nil
}
