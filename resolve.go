package patchbay

import "sort"

// followChain looks a value up through an explicit mapping until it reaches
// a fixed point: a value that is not a key, or one mapped to itself.  Folded
// defaults map every model a candidate fulfills to that candidate, so
// identity entries are normal and terminal.  A mapping of n entries cannot
// legitimately chain through more than n distinct values, so anything longer
// is a cycle; origin names the chain's start in the error.
func followChain(explicit Use, origin SelectionKey, v SelectionValue) (SelectionValue, error) {
	limit := len(explicit)
	for hops := 0; ; hops++ {
		if v == nil {
			return nil, nil
		}
		next, ok := explicit[v]
		if !ok || next == v {
			return v, nil
		}
		if hops >= limit {
			return nil, &SelectionCycleError{Key: origin}
		}
		v = next
	}
}

// resolveRecursive rewrites every explicit value to the end of its chain.
func (m *SelectionMap) resolveRecursive() (Use, error) {
	out := make(Use, len(m.explicit))
	for k, v := range m.explicit {
		final, err := followChain(m.explicit, k, v)
		if err != nil {
			return nil, err
		}
		out[k] = final
	}
	return out, nil
}

// resolveDefaults folds the default candidates into a chain-resolved
// explicit mapping.  Every model a candidate fulfills gets that candidate
// as its selection, unless the explicit mapping already covers the model or
// a different candidate fulfills it too.  Contested models are dropped
// outright: no default applies to them, and SelectionFor reports no
// selection rather than an arbitrary winner.
func (m *SelectionMap) resolveDefaults(explicit Use) (Use, error) {
	chosen := make(Use)
	ambiguous := make(map[SelectionKey]map[SelectionValue]struct{})
	for candidate := range m.defaults {
		resolved, err := followChain(explicit, candidate, candidate)
		if err != nil {
			return nil, err
		}
		src, ok := resolved.(FulfilledModelSource)
		if !ok {
			// Unresolved names and nil targets cannot enumerate
			// the models they fulfill; they wait for name
			// resolution.
			continue
		}
		src.EachFulfilledModel(func(fm Model) bool {
			key := SelectionKey(fm)
			if _, has := explicit[key]; has {
				return true
			}
			if set, contested := ambiguous[key]; contested {
				set[resolved] = struct{}{}
				return true
			}
			if prev, has := chosen[key]; has {
				if prev != resolved {
					delete(chosen, key)
					ambiguous[key] = map[SelectionValue]struct{}{
						prev:     {},
						resolved: {},
					}
					m.emit(TraceEvent{Op: TraceAmbiguity, Key: key, Value: resolved})
				}
				return true
			}
			chosen[key] = resolved
			m.emit(TraceEvent{Op: TraceDefault, Key: key, Value: resolved})
			return true
		})
	}
	merged := make(Use, len(explicit)+len(chosen))
	for k, v := range explicit {
		merged[k] = v
	}
	for k, v := range chosen {
		merged[k] = v
	}
	return merged, nil
}

// Resolve returns a new map in which every selection chain has been
// collapsed to its terminal value and the default candidates have been
// turned into explicit selections.  The result carries no defaults; models
// contested by several candidates are absent from it.  m itself is not
// modified.
func (m *SelectionMap) Resolve() (*SelectionMap, error) {
	explicit, err := m.resolveRecursive()
	if err != nil {
		return nil, err
	}
	folded, err := m.resolveDefaults(explicit)
	if err != nil {
		return nil, err
	}
	return &SelectionMap{
		explicit: folded,
		defaults: make(map[SelectionValue]struct{}),
		tracer:   m.tracer,
	}, nil
}

// resolvedMap returns the memoized Resolve result, rebuilding it after any
// mutation.  Errors are not cached.
func (m *SelectionMap) resolvedMap() (*SelectionMap, error) {
	if m.resolved == nil {
		r, err := m.Resolve()
		if err != nil {
			return nil, err
		}
		m.resolved = r
	}
	return m.resolved, nil
}

// SelectionFor returns the selection that applies to key, following
// explicit selection chains to their end.  The boolean reports whether any
// selection applies at all; true with a nil value is an explicit "use
// nothing for this key".  When the map carries defaults the lookup goes
// through the resolved form, so defaults apply and contested models report
// no selection.
func (m *SelectionMap) SelectionFor(key SelectionKey) (SelectionValue, bool, error) {
	if len(m.defaults) > 0 {
		r, err := m.resolvedMap()
		if err != nil {
			return nil, false, err
		}
		return r.SelectionFor(key)
	}
	v, ok := m.explicit[key]
	if !ok {
		return nil, false, nil
	}
	final, err := followChain(m.explicit, key, v)
	if err != nil {
		return nil, false, err
	}
	return final, true, nil
}

// CandidatesFor returns every value that could satisfy key.  An explicit
// selection pins the result to that single candidate.  Otherwise all
// default candidates fulfilling key are returned, including ones that lose
// the model to ambiguity during Resolve; callers that want to report an
// ambiguity to the user see every contender here.  Candidates are ordered
// by their rendering.
func (m *SelectionMap) CandidatesFor(key SelectionKey) ([]SelectionValue, error) {
	if v, ok := m.explicit[key]; ok {
		final, err := followChain(m.explicit, key, v)
		if err != nil {
			return nil, err
		}
		return []SelectionValue{final}, nil
	}
	keyModel, isModel := key.(Model)
	if !isModel || len(m.defaults) == 0 {
		return nil, nil
	}
	var out []SelectionValue
	seen := make(map[SelectionValue]struct{})
	for candidate := range m.defaults {
		resolved, err := followChain(m.explicit, candidate, candidate)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		f, ok := resolved.(Fulfillable)
		if !ok || !f.Fulfills(keyModel) {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
	}
	sort.Slice(out, func(i, j int) bool {
		return describeSelection(out[i]) < describeSelection(out[j])
	})
	return out, nil
}
