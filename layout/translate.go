package layout

import (
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/frobware/go-bpfobject/irtype"
)

// Registry maps struct names to their native layouts.
type Registry map[string]*Struct

// Lookup returns the named struct.
func (r Registry) Lookup(name string) (*Struct, bool) {
	s, ok := r[name]
	return s, ok
}

// Names returns the struct names in sorted order.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// Translator converts front-end struct tables into registries.
// Diagnostics go to the logger supplied at construction.
type Translator struct {
	logger *slog.Logger
}

// NewTranslator returns a Translator that reports each converted
// struct to logger. A nil logger discards diagnostics.
func NewTranslator(logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Translator{logger: logger.With("component", "layout")}
}

// Translate converts every struct in table. Entries are processed in
// name order and the first failure aborts the translation: either
// every struct is converted or an error is returned with no registry.
func (t *Translator) Translate(table irtype.StructTable) (Registry, error) {
	out := make(Registry, len(table))

	for _, name := range slices.Sorted(maps.Keys(table)) {
		sym := table[name]
		s, err := Build(name, sym.Fields)
		if err != nil {
			t.logger.Error("failed to convert struct", "name", name, "error", err)
			return nil, err
		}

		t.logger.Debug("converted struct",
			"name", name,
			"fields", s.FieldSummary(),
			"size", s.Size())
		if sym.Size > 0 && sym.Size != s.Size() {
			t.logger.Warn("front-end size differs from packed size",
				"name", name,
				"front_end_size", sym.Size,
				"packed_size", s.Size())
		}

		out[name] = s
	}

	if len(out) > 0 {
		t.logger.Info("translated struct table", "structs", len(out))
	}
	return out, nil
}
