package patchbay

import (
	"sort"
	"strings"
)

// SelectionMap binds requirement keys to the values that should satisfy
// them.  It has two parts: an explicit mapping from keys to values, and a
// set of default candidates that apply wherever the explicit mapping is
// silent.
//
// The explicit mapping is kept normalized at all times: keys are names,
// component models, or service models; values are names, models, bound
// services, requirement specifications, or nil.  Pairs are projected on the
// way in (a bound service selected for a component model stands for its
// component, a component selected for a service model stands for the single
// matching service it provides) so that lookups never re-derive those
// relationships.
//
// A SelectionMap is not safe for concurrent use.
type SelectionMap struct {
	explicit Use
	defaults map[SelectionValue]struct{}

	// resolved memoizes Resolve().  Every mutation clears it through
	// touch; queries on maps with defaults rebuild it on demand.
	resolved *SelectionMap

	tracer Tracer
}

func newSelectionMap() *SelectionMap {
	return &SelectionMap{
		explicit: make(Use),
		defaults: make(map[SelectionValue]struct{}),
	}
}

// NewSelectionMap creates a SelectionMap from a mix of arguments: Use maps
// become explicit selections, other *SelectionMap values are merged in
// wholesale, and bare values (models, bound services, names, requirement
// specifications) become default candidates.
//
//	sel, err := NewSelectionMap(
//		Use{Name("camera"): firewireCamera},
//		preferredDriver,
//	)
//
// Explicit batches are normalized atomically: an invalid or incompatible
// pair fails the whole call without mutating anything.
func NewSelectionMap(args ...any) (*SelectionMap, error) {
	m := newSelectionMap()
	if err := m.Add(args...); err != nil {
		return nil, err
	}
	return m, nil
}

// MustSelectionMap is like NewSelectionMap but panics on error.
func MustSelectionMap(args ...any) *SelectionMap {
	m, err := NewSelectionMap(args...)
	if err != nil {
		panic(err)
	}
	return m
}

// Add merges additional selections into the map.  Arguments are coerced the
// same way NewSelectionMap coerces them.
func (m *SelectionMap) Add(args ...any) error {
	for _, arg := range args {
		switch arg := arg.(type) {
		case nil:
			return &InvalidSelectionError{Reason: "nil cannot be a selection argument"}
		case Use:
			if err := m.AddExplicit(arg); err != nil {
				return err
			}
		case map[SelectionKey]SelectionValue:
			if err := m.AddExplicit(arg); err != nil {
				return err
			}
		case *SelectionMap:
			m.Merge(arg)
		default:
			if err := m.AddDefaults(arg); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddExplicit normalizes a batch of explicit selections and merges it into
// the map.  The batch is validated and projected in full before any of it
// lands: on error the map is unchanged.
func (m *SelectionMap) AddExplicit(sel Use) error {
	normalized, err := normalizeSelection(sel)
	if err != nil {
		return err
	}
	for k, v := range normalized {
		m.explicit[k] = v
		m.emit(TraceEvent{Op: TraceNormalize, Key: k, Value: v})
	}
	m.touch()
	return nil
}

// AddDefaults adds default selection candidates.  Defaults kick in for any
// model the explicit mapping does not cover; a candidate that fulfills a
// model contested by another candidate is discarded for that model rather
// than chosen arbitrarily.
func (m *SelectionMap) AddDefaults(candidates ...SelectionValue) error {
	for _, c := range candidates {
		switch c.(type) {
		case Name, BoundService, ComponentModel, ServiceModel, Requirements:
		default:
			return &InvalidSelectionError{Value: c,
				Reason: "defaults must be names, models, bound services, or requirements"}
		}
	}
	for _, c := range candidates {
		m.defaults[c] = struct{}{}
	}
	m.touch()
	return nil
}

// Merge folds other into m: other's explicit selections win over m's own,
// defaults are unioned.  Both maps are already normalized, so nothing is
// re-validated.  A nil other merges nothing.
func (m *SelectionMap) Merge(other *SelectionMap) *SelectionMap {
	if other == nil {
		return m
	}
	for k, v := range other.explicit {
		m.explicit[k] = v
	}
	for c := range other.defaults {
		m.defaults[c] = struct{}{}
	}
	m.touch()
	return m
}

// MapValues replaces every explicit and default value with fn's result.
// Results are not re-normalized; fn must map valid values to valid values.
func (m *SelectionMap) MapValues(fn func(SelectionValue) SelectionValue) *SelectionMap {
	for k, v := range m.explicit {
		m.explicit[k] = fn(v)
	}
	defaults := make(map[SelectionValue]struct{}, len(m.defaults))
	for c := range m.defaults {
		defaults[fn(c)] = struct{}{}
	}
	m.defaults = defaults
	m.touch()
	return m
}

// Dup returns an independent copy of the map.  Requirement-spec values are
// deep copied; model descriptors are shared, they are identity objects.
func (m *SelectionMap) Dup() *SelectionMap {
	out := &SelectionMap{
		explicit: make(Use, len(m.explicit)),
		defaults: make(map[SelectionValue]struct{}, len(m.defaults)),
		tracer:   m.tracer,
	}
	for k, v := range m.explicit {
		out.explicit[k] = dupValue(v)
	}
	for c := range m.defaults {
		out.defaults[dupValue(c)] = struct{}{}
	}
	return out
}

func dupValue(v SelectionValue) SelectionValue {
	if req, ok := v.(Requirements); ok {
		return req.Dup()
	}
	return v
}

// Empty reports whether the map has no explicit selections and no defaults.
func (m *SelectionMap) Empty() bool {
	return len(m.explicit) == 0 && len(m.defaults) == 0
}

// Equal compares explicit mappings and default sets.  Values compare by
// identity.  Tracers and cached resolutions do not participate.
func (m *SelectionMap) Equal(other *SelectionMap) bool {
	if m == other {
		return true
	}
	if other == nil {
		return false
	}
	if len(m.explicit) != len(other.explicit) || len(m.defaults) != len(other.defaults) {
		return false
	}
	for k, v := range m.explicit {
		ov, ok := other.explicit[k]
		if !ok || ov != v {
			return false
		}
	}
	for c := range m.defaults {
		if _, ok := other.defaults[c]; !ok {
			return false
		}
	}
	return true
}

// Explicit returns a copy of the explicit mapping.
func (m *SelectionMap) Explicit() Use {
	out := make(Use, len(m.explicit))
	for k, v := range m.explicit {
		out[k] = v
	}
	return out
}

// Defaults returns the default candidates, ordered by their rendering.
func (m *SelectionMap) Defaults() []SelectionValue {
	out := make([]SelectionValue, 0, len(m.defaults))
	for c := range m.defaults {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return describeSelection(out[i]) < describeSelection(out[j])
	})
	return out
}

// SetTracer installs a tracer for resolution events.  A nil tracer disables
// tracing.  Dup propagates the tracer to copies.
func (m *SelectionMap) SetTracer(t Tracer) *SelectionMap {
	m.tracer = t
	return m
}

func (m *SelectionMap) String() string {
	pairs := make([]string, 0, len(m.explicit))
	for k, v := range m.explicit {
		pairs = append(pairs, describeSelection(k)+" => "+describeSelection(v))
	}
	sort.Strings(pairs)
	var b strings.Builder
	b.WriteString("SelectionMap{")
	b.WriteString(strings.Join(pairs, ", "))
	if len(m.defaults) > 0 {
		defaults := make([]string, 0, len(m.defaults))
		for c := range m.defaults {
			defaults = append(defaults, describeSelection(c))
		}
		sort.Strings(defaults)
		if len(pairs) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("defaults: [")
		b.WriteString(strings.Join(defaults, ", "))
		b.WriteString("]")
	}
	b.WriteString("}")
	return b.String()
}

// touch is the single invalidation path for the resolution cache.  Every
// mutator goes through it.
func (m *SelectionMap) touch() {
	m.resolved = nil
}

func (m *SelectionMap) emit(ev TraceEvent) {
	if m.tracer != nil {
		m.tracer.Trace(ev)
	}
}

// normalizeSelection validates a raw selection batch and projects each pair
// into normalized form.  The input is not modified.
func normalizeSelection(sel Use) (Use, error) {
	out := make(Use, len(sel))
	for k, v := range sel {
		nk, nv, err := normalizePair(k, v)
		if err != nil {
			return nil, err
		}
		out[nk] = nv
	}
	return out, nil
}

// normalizePair checks one key/value pair and applies the component/service
// projections.  The variant interfaces form subset chains (bound services
// and component models both carry a service model's method set), so the
// order of the type cases is significant: narrower variants come first.
func normalizePair(key SelectionKey, value SelectionValue) (SelectionKey, SelectionValue, error) {
	switch key.(type) {
	case Name:
	case BoundService:
		return nil, nil, &InvalidSelectionError{Key: key, Value: value,
			Reason: "bound services cannot be selection keys"}
	case ComponentModel, ServiceModel:
	default:
		return nil, nil, &InvalidSelectionError{Key: key, Value: value,
			Reason: "keys must be names, component models, or service models"}
	}
	switch value.(type) {
	case nil, Name, BoundService, ComponentModel, ServiceModel, Requirements:
	default:
		return nil, nil, &InvalidSelectionError{Key: key, Value: value,
			Reason: "values must be names, models, bound services, requirements, or nil"}
	}
	if keyModel, ok := key.(Model); ok {
		if f, ok := value.(Fulfillable); ok && !f.Fulfills(keyModel) {
			return nil, nil, &IncompatibleSelectionError{Key: keyModel, Value: value}
		}
	}
	if cm, ok := key.(ComponentModel); ok {
		if bs, ok := value.(BoundService); ok {
			return cm, bs.Component(), nil
		}
		return key, value, nil
	}
	if sm, ok := key.(ServiceModel); ok {
		if vcm, ok := value.(ComponentModel); ok {
			bs, err := vcm.FindService(sm)
			if err != nil {
				return nil, nil, err
			}
			if bs == nil {
				return nil, nil, &IncompatibleSelectionError{Key: sm, Value: value}
			}
			return key, bs, nil
		}
	}
	return key, value, nil
}
