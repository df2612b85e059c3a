package logging

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Component names used with logger.With("component", ...).
const (
	ComponentObject   = "object"
	ComponentLayout   = "layout"
	ComponentEvents   = "events"
	ComponentRecorder = "recorder"
	ComponentCLI      = "cli"
)

// Components lists every component name in use.
var Components = []string{
	ComponentCLI,
	ComponentEvents,
	ComponentLayout,
	ComponentObject,
	ComponentRecorder,
}

// DefaultLevel applies when no spec is given.
const DefaultLevel = LevelWarn

// Spec is a base level with optional per-component overrides.
//
// Format: "<base-level>[,<component>=<level>]..."
//
// Examples:
//   - "info"
//   - "warn,events=debug"
//   - "info,layout=debug,recorder=trace"
type Spec struct {
	BaseLevel  Level
	Components map[string]Level
}

// ParseSpec parses a log specification string. An empty string yields
// DefaultLevel with no overrides.
func ParseSpec(s string) (Spec, error) {
	spec := Spec{
		BaseLevel:  DefaultLevel,
		Components: make(map[string]Level),
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return spec, nil
	}

	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		component, levelStr, isOverride := strings.Cut(part, "=")
		if !isOverride {
			if i != 0 {
				return spec, fmt.Errorf("base level %q must be first in spec", part)
			}
			level, err := ParseLevel(part)
			if err != nil {
				return spec, err
			}
			spec.BaseLevel = level
			continue
		}

		component = strings.TrimSpace(component)
		if component == "" {
			return spec, fmt.Errorf("empty component name in %q", part)
		}
		level, err := ParseLevel(levelStr)
		if err != nil {
			return spec, fmt.Errorf("invalid level for component %q: %w", component, err)
		}
		spec.Components[component] = level
	}

	return spec, nil
}

// LevelFor returns the effective level for a component.
func (s *Spec) LevelFor(component string) Level {
	if level, ok := s.Components[component]; ok {
		return level
	}
	return s.BaseLevel
}

// Unknown returns the overridden component names not in Components,
// sorted.
func (s *Spec) Unknown() []string {
	var unknown []string
	for name := range s.Components {
		if !slices.Contains(Components, name) {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(unknown)
	return unknown
}

// String returns the spec in parseable form with components sorted.
func (s *Spec) String() string {
	parts := []string{s.BaseLevel.String()}
	for _, component := range slices.Sorted(maps.Keys(s.Components)) {
		parts = append(parts, component+"="+s.Components[component].String())
	}
	return strings.Join(parts, ",")
}
