package patchbay

import (
	"fmt"
	"sort"
	"strings"
)

// ResolveNames replaces Name values with the values src resolves them to,
// in both the explicit mapping and the default set.  Keys stay as they are;
// they name requirement slots, not objects.
//
// A name src does not know stays in place and is reported in the returned
// slice, sorted.  A dotted name "object.service" resolves its first segment
// through src and its second through the resulting object's services; a
// first segment that resolves to something without services, or to an
// object lacking the named service, fails the whole call with a
// *NameResolutionError, leaving the map untouched.
func (m *SelectionMap) ResolveNames(src NameSource) ([]string, error) {
	unresolved := make(map[string]struct{})
	explicitRepl := make(Use)
	for k, v := range m.explicit {
		nv, ok, err := resolveNameValue(src, v, unresolved)
		if err != nil {
			return nil, err
		}
		if ok {
			explicitRepl[k] = nv
		}
	}
	defaultRepl := make(map[SelectionValue]SelectionValue)
	for c := range m.defaults {
		nv, ok, err := resolveNameValue(src, c, unresolved)
		if err != nil {
			return nil, err
		}
		if ok {
			defaultRepl[c] = nv
		}
	}
	// commit only after the whole pass has succeeded
	for k, nv := range explicitRepl {
		m.explicit[k] = nv
	}
	for old, nv := range defaultRepl {
		delete(m.defaults, old)
		m.defaults[nv] = struct{}{}
	}
	if len(explicitRepl) > 0 || len(defaultRepl) > 0 {
		m.touch()
	}
	names := make([]string, 0, len(unresolved))
	for n := range unresolved {
		names = append(names, n)
	}
	sort.Strings(names)
	m.emit(TraceEvent{Op: TraceNames, Names: names})
	return names, nil
}

// resolveNameValue resolves one value if it is a Name.  It returns the
// replacement and whether a replacement happened; names src cannot resolve
// are recorded in unresolved and left alone.
func resolveNameValue(src NameSource, v SelectionValue, unresolved map[string]struct{}) (SelectionValue, bool, error) {
	n, ok := v.(Name)
	if !ok {
		return nil, false, nil
	}
	full := string(n)
	base, sub, dotted := strings.Cut(full, ".")
	obj, found := src.LookupName(base)
	if !found {
		unresolved[full] = struct{}{}
		return nil, false, nil
	}
	if !dotted {
		return obj, true, nil
	}
	container, ok := obj.(ServiceContainer)
	if !ok {
		return nil, false, &NameResolutionError{Names: []string{full},
			Detail: fmt.Sprintf("%s has no named services", describeSelection(obj))}
	}
	bs, ok := container.FindServiceByName(sub)
	if !ok {
		return nil, false, &NameResolutionError{Names: []string{full},
			Detail: fmt.Sprintf("%s has no service named %q", describeSelection(obj), sub)}
	}
	return bs, true, nil
}

// RemoveUnresolved discards every name still pending resolution: explicit
// selections on names become explicit "use nothing" entries, name defaults
// are dropped.  Contexts call this after a failed partial resolution to get
// back to a usable map.
func (m *SelectionMap) RemoveUnresolved() *SelectionMap {
	for k, v := range m.explicit {
		if _, ok := v.(Name); ok {
			m.explicit[k] = nil
		}
	}
	for c := range m.defaults {
		if _, ok := c.(Name); ok {
			delete(m.defaults, c)
		}
	}
	m.touch()
	return m
}
