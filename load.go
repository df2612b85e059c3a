package bpfobject

import (
	"context"
	"errors"
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/rlimit"

	"github.com/frobware/go-bpfobject/bpffs"
	"github.com/frobware/go-bpfobject/irtype"
	"github.com/frobware/go-bpfobject/kernel"
	"github.com/frobware/go-bpfobject/layout"
)

// Load loads the object file at path into the kernel. Programs are
// loaded but not attached.
//
// If the struct table cannot be translated the collection is closed
// and no Object is returned.
func Load(ctx context.Context, path string, opts ...Option) (*Object, error) {
	o := newOptions(opts)
	if len(o.btfStructs) > 0 && o.structs != nil {
		return nil, errors.New("WithStructs and WithBTFStructs are mutually exclusive")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("removing memlock rlimit: %w", err)
	}

	spec, err := ebpf.LoadCollectionSpec(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection spec: %w", err)
	}

	if len(o.btfStructs) > 0 {
		if spec.Types == nil {
			return nil, fmt.Errorf("%s has no BTF", path)
		}
		table, err := irtype.TableFromBTF(spec.Types, o.btfStructs...)
		if err != nil {
			return nil, fmt.Errorf("reading structs from BTF: %w", err)
		}
		o.structs = layout.FrontEndStructs(table)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		var ve *ebpf.VerifierError
		if errors.As(err, &ve) {
			o.logger.Debug("verifier log", "component", "object", "log", fmt.Sprintf("%+v", ve))
		}
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	obj, err := newObject(newEBPFCollection(coll), o)
	if err != nil {
		coll.Close()
		return nil, err
	}
	obj.logger.Info("loaded object", "path", path)
	return obj, nil
}

// LoadPinned opens every map pinned directly in dir, which must be on a
// bpffs mount. The resulting Object has no programs. Pins that are not
// maps are skipped.
func LoadPinned(ctx context.Context, dir string, opts ...Option) (*Object, error) {
	o := newOptions(opts)
	if len(o.btfStructs) > 0 {
		return nil, errors.New("WithBTFStructs requires Load")
	}
	logger := o.logger.With("component", "object")

	root, ok, err := bpffs.FindMount(o.mountInfoPath, dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s is not on a bpffs mount", dir)
	}
	logger.Debug("found bpffs", "root", root, "dir", dir)

	coll := &pinnedCollection{
		handles: make(map[string]*kernel.MapHandle),
		paths:   make(map[string]string),
	}

	scanner := bpffs.NewScanner(dir).WithOnMalformed(func(path string, err error) {
		logger.Warn("skipping pin", "path", path, "error", err)
	})
	for pin, err := range scanner.Pins(ctx) {
		if err != nil {
			coll.Close()
			return nil, err
		}
		m, err := ebpf.LoadPinnedMap(pin.Path, nil)
		if err != nil {
			logger.Debug("pin is not a map", "path", pin.Path, "error", err)
			continue
		}
		coll.handles[pin.Name] = kernel.NewHandle(pin.Name, m)
		coll.paths[pin.Name] = pin.Path
	}
	if len(coll.handles) == 0 {
		return nil, fmt.Errorf("no pinned maps in %s", dir)
	}

	obj, err := newObject(coll, o)
	if err != nil {
		coll.Close()
		return nil, err
	}
	logger.Info("opened pinned maps", "dir", dir, "maps", len(coll.handles))
	return obj, nil
}
