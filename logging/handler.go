package logging

import (
	"context"
	"log/slog"
)

// componentKey is the attribute key used for component names.
const componentKey = "component"

// filteringHandler drops records below the level the Spec assigns to
// the handler's component. The component is taken from the most recent
// "component" attribute added with WithAttrs.
//
// The threshold is resolved when the component is bound, not per
// record: event buffers call Enabled once per sample.
type filteringHandler struct {
	inner     slog.Handler
	spec      *Spec
	component string
	min       slog.Level
}

// NewFilteringHandler wraps inner with component level filtering.
// inner should accept every level.
func NewFilteringHandler(inner slog.Handler, spec *Spec) slog.Handler {
	return &filteringHandler{
		inner: inner,
		spec:  spec,
		min:   spec.LevelFor("").ToSlog(),
	}
}

func (h *filteringHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

func (h *filteringHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.min {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, attr := range attrs {
		if attr.Key == componentKey {
			component = attr.Value.String()
		}
	}
	return h.derive(h.inner.WithAttrs(attrs), component)
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return h.derive(h.inner.WithGroup(name), h.component)
}

func (h *filteringHandler) derive(inner slog.Handler, component string) *filteringHandler {
	next := &filteringHandler{
		inner:     inner,
		spec:      h.spec,
		component: component,
		min:       h.min,
	}
	if component != h.component {
		next.min = h.spec.LevelFor(component).ToSlog()
	}
	return next
}
