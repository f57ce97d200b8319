package patchbay

import "errors"

// StackLevel is one level of a Context: the cumulative resolver in effect
// at that level, and the raw spec whose push created it.
type StackLevel struct {
	resolver *SelectionMap
	added    *SelectionMap
}

// Resolver returns the cumulative selection state at this level.
func (l StackLevel) Resolver() *SelectionMap { return l.resolver }

// Added returns the spec that was pushed to create this level, as given,
// before name resolution and default folding.
func (l StackLevel) Added() *SelectionMap { return l.added }

// Context is a stack of selection states.  Each push layers a new spec over
// the accumulated state; each pop returns to the state before the matching
// push, exactly.  Composition instantiation walks an assembly tree this
// way: push the child's selections on the way down, pop on the way up.
//
// The bottom level always exists.  It holds the base selection the context
// was created with, or an empty resolver, and Pop never removes it.
//
// A Context is not safe for concurrent use.
type Context struct {
	stack      []StackLevel
	savepoints []int
	tracer     Tracer
}

// NewContext creates a context.  base arguments are coerced the way Push
// coerces its argument and become the bottom level of the stack.
func NewContext(base ...any) (*Context, error) {
	c := &Context{}
	spec, err := coerceSpec(base...)
	if err != nil {
		return nil, err
	}
	if err := c.push(spec); err != nil {
		return nil, err
	}
	return c, nil
}

// coerceSpec builds the *SelectionMap form of a push argument.  nil
// arguments mean "nothing" and coerce to an empty map.
func coerceSpec(args ...any) (*SelectionMap, error) {
	if len(args) == 1 {
		if m, ok := args[0].(*SelectionMap); ok && m != nil {
			return m, nil
		}
	}
	out := newSelectionMap()
	for _, arg := range args {
		if arg == nil {
			continue
		}
		if err := out.Add(arg); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Push appends a resolution level.  spec may be nil, a Use map, a
// map[SelectionKey]SelectionValue, or a *SelectionMap.
//
// An empty spec appends a level that shares the current resolver: nothing
// is copied, and popping the level restores the previous state exactly.  A
// non-empty spec is duplicated, its names resolved against the union of the
// current resolver's named selections and its own (so a push may refer to
// names it defines itself), its defaults folded into explicit form, and the
// result merged over a copy of the current resolver.  On any error the
// stack is left untouched.
func (c *Context) Push(spec any) error {
	coerced, err := coerceSpec(spec)
	if err != nil {
		return err
	}
	return c.push(coerced)
}

func (c *Context) push(spec *SelectionMap) error {
	if spec.Empty() {
		var top *SelectionMap
		if len(c.stack) == 0 {
			top = newSelectionMap()
			if c.tracer != nil {
				top.SetTracer(c.tracer)
			}
		} else {
			top = c.stack[len(c.stack)-1].resolver
		}
		c.stack = append(c.stack, StackLevel{resolver: top, added: spec})
		c.emit(TraceEvent{Op: TracePush, Depth: len(c.stack)})
		return nil
	}
	var working *SelectionMap
	if len(c.stack) == 0 {
		working = newSelectionMap()
	} else {
		working = c.stack[len(c.stack)-1].resolver.Dup()
	}
	resolvedSpec := spec.Dup()
	if c.tracer != nil {
		working.SetTracer(c.tracer)
		resolvedSpec.SetTracer(c.tracer)
	}
	table := make(NameMap)
	for k, v := range working.explicit {
		if n, ok := k.(Name); ok {
			table[string(n)] = v
		}
	}
	for k, v := range resolvedSpec.explicit {
		if n, ok := k.(Name); ok {
			table[string(n)] = v
		}
	}
	unresolved, err := resolvedSpec.ResolveNames(table)
	if err != nil {
		return err
	}
	if len(unresolved) > 0 {
		return &NameResolutionError{Names: unresolved}
	}
	folded, err := resolvedSpec.Resolve()
	if err != nil {
		return err
	}
	working.Merge(folded)
	c.stack = append(c.stack, StackLevel{resolver: working, added: spec})
	c.emit(TraceEvent{Op: TracePush, Depth: len(c.stack)})
	return nil
}

// Pop removes and returns the top level.  It refuses, returning false, when
// only the base level remains or when the top level is protected by a
// savepoint; Restore is the only way past a savepoint.
func (c *Context) Pop() (StackLevel, bool) {
	if len(c.stack) <= 1 {
		return StackLevel{}, false
	}
	if n := len(c.savepoints); n > 0 && c.savepoints[n-1] == len(c.stack) {
		return StackLevel{}, false
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.emit(TraceEvent{Op: TracePop, Depth: len(c.stack)})
	return top, true
}

// Save records the current stack depth.  The matching Restore truncates the
// stack back to it, discarding every level pushed since.
func (c *Context) Save() {
	c.savepoints = append(c.savepoints, len(c.stack))
	c.emit(TraceEvent{Op: TraceSave, Depth: len(c.stack)})
}

// Restore truncates the stack to the most recent savepoint and consumes it.
// It returns ErrNoSavepoint when Save was never called or every savepoint
// has already been consumed.
func (c *Context) Restore() error {
	if len(c.savepoints) == 0 {
		return ErrNoSavepoint
	}
	depth := c.savepoints[len(c.savepoints)-1]
	c.savepoints = c.savepoints[:len(c.savepoints)-1]
	c.stack = c.stack[:depth]
	c.emit(TraceEvent{Op: TraceRestore, Depth: len(c.stack)})
	return nil
}

// Scoped runs fn between Save and Restore.  The restore happens even when
// fn panics.  A restore failure joins fn's error.
func (c *Context) Scoped(fn func() error) (err error) {
	c.Save()
	defer func() {
		err = errors.Join(err, c.Restore())
	}()
	return fn()
}

// Current returns the top-of-stack resolver.  Mutating it mutates the
// context's state at that level; Dup it first to branch off.
func (c *Context) Current() *SelectionMap {
	return c.stack[len(c.stack)-1].resolver
}

// Depth returns the number of stack levels, base level included.
func (c *Context) Depth() int { return len(c.stack) }

// Level returns the i'th level counting from the bottom.
func (c *Context) Level(i int) (StackLevel, bool) {
	if i < 0 || i >= len(c.stack) {
		return StackLevel{}, false
	}
	return c.stack[i], true
}

// SelectionFor queries the top-of-stack resolver.
func (c *Context) SelectionFor(key SelectionKey) (SelectionValue, bool, error) {
	return c.Current().SelectionFor(key)
}

// CandidatesFor queries the top-of-stack resolver.
func (c *Context) CandidatesFor(key SelectionKey) ([]SelectionValue, error) {
	return c.Current().CandidatesFor(key)
}

// InstanceSelectionFor queries the top-of-stack resolver.
func (c *Context) InstanceSelectionFor(name string, req Requirements) (*InstanceSelection, error) {
	return c.Current().InstanceSelectionFor(name, req)
}

// SetTracer installs a tracer for stack events.  Levels pushed afterwards
// propagate it to the resolvers they create.
func (c *Context) SetTracer(t Tracer) *Context {
	c.tracer = t
	return c
}

func (c *Context) emit(ev TraceEvent) {
	if c.tracer != nil {
		c.tracer.Trace(ev)
	}
}
