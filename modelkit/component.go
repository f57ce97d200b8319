package modelkit

import (
	"fmt"
	"sync"

	"github.com/ambrel/patchbay"
)

// BaseTask and BaseComposition are the roots of the component-model
// hierarchy.  Every task type fulfills BaseTask, every composition type
// fulfills BaseComposition (and through it BaseTask).  Fulfilled-model
// walks stop below the roots.
var (
	BaseTask        = &TaskType{componentCore{name: "modelkit.TaskContext", root: true}}
	BaseComposition = &CompositionType{componentCore: componentCore{
		name:   "modelkit.Composition",
		parent: BaseTask,
		root:   true,
	}}
)

// componentModel is the shared surface of TaskType and CompositionType.
// The concrete receiver is threaded through the package-level helpers so
// that identity checks always see the exported descriptor, never an
// embedded core.
type componentModel interface {
	patchbay.ComponentModel
	core() *componentCore
}

type componentCore struct {
	name     string
	parent   componentModel
	provided []*BoundService
	root     bool

	mu       sync.Mutex
	attached map[*BoundService]*BoundService
}

// TaskType is a component model: a task context, or a placeholder
// synthesized by Placeholder.
type TaskType struct {
	componentCore
}

// NewTaskType declares a task type rooted under BaseTask.
func NewTaskType(name string) *TaskType {
	return &TaskType{componentCore{name: name, parent: BaseTask}}
}

// Subtype declares a task type extending t.  The subtype fulfills t and
// inherits its provided services.
func (t *TaskType) Subtype(name string) *TaskType {
	return &TaskType{componentCore{name: name, parent: t}}
}

func (t *TaskType) core() *componentCore { return &t.componentCore }

// ModelName implements patchbay.Model.
func (t *TaskType) ModelName() string { return t.name }

func (t *TaskType) String() string { return t.name }

// Fulfills reports whether t is m, extends m, or provides a service
// fulfilling m.
func (t *TaskType) Fulfills(m patchbay.Model) bool { return fulfills(t, m) }

// EachFulfilledModel implements patchbay.FulfilledModelSource.
func (t *TaskType) EachFulfilledModel(fn func(patchbay.Model) bool) { eachFulfilled(t, fn) }

// FindService implements patchbay.ComponentModel.
func (t *TaskType) FindService(m patchbay.ServiceModel) (patchbay.BoundService, error) {
	return findService(t, m)
}

// FindServiceByName implements patchbay.ServiceContainer.
func (t *TaskType) FindServiceByName(name string) (patchbay.BoundService, bool) {
	return findServiceByName(t, name)
}

// Merge implements patchbay.ComponentModel.
func (t *TaskType) Merge(other patchbay.ComponentModel) (patchbay.ComponentModel, error) {
	return mergeModels(t, other)
}

// Provides declares that t provides srv under name.  portMap maps srv's
// port names onto t's port names; unmapped ports keep their names.  It
// panics on a duplicate name or a nil service, which are definition-time
// mistakes.
func (t *TaskType) Provides(name string, srv *ServiceType, portMap map[string]string) *BoundService {
	return provide(t, name, srv, portMap)
}

// CompositionType is a component model assembled from named children.  The
// resolver itself never looks at children; they are model metadata that
// instantiation walks push onto a Context one level per child.
type CompositionType struct {
	componentCore
	children map[string]patchbay.Requirements
}

// NewComposition declares a composition type rooted under BaseComposition.
func NewComposition(name string) *CompositionType {
	return &CompositionType{componentCore: componentCore{name: name, parent: BaseComposition}}
}

// Subtype declares a composition type extending ct, inheriting its children
// and provided services.
func (ct *CompositionType) Subtype(name string) *CompositionType {
	return &CompositionType{componentCore: componentCore{name: name, parent: ct}}
}

func (ct *CompositionType) core() *componentCore { return &ct.componentCore }

// ModelName implements patchbay.Model.
func (ct *CompositionType) ModelName() string { return ct.name }

func (ct *CompositionType) String() string { return ct.name }

// Fulfills reports whether ct is m, extends m, or provides a service
// fulfilling m.
func (ct *CompositionType) Fulfills(m patchbay.Model) bool { return fulfills(ct, m) }

// EachFulfilledModel implements patchbay.FulfilledModelSource.
func (ct *CompositionType) EachFulfilledModel(fn func(patchbay.Model) bool) { eachFulfilled(ct, fn) }

// FindService implements patchbay.ComponentModel.
func (ct *CompositionType) FindService(m patchbay.ServiceModel) (patchbay.BoundService, error) {
	return findService(ct, m)
}

// FindServiceByName implements patchbay.ServiceContainer.
func (ct *CompositionType) FindServiceByName(name string) (patchbay.BoundService, bool) {
	return findServiceByName(ct, name)
}

// Merge implements patchbay.ComponentModel.
func (ct *CompositionType) Merge(other patchbay.ComponentModel) (patchbay.ComponentModel, error) {
	return mergeModels(ct, other)
}

// Provides declares an exported service on the composition.
func (ct *CompositionType) Provides(name string, srv *ServiceType, portMap map[string]string) *BoundService {
	return provide(ct, name, srv, portMap)
}

// AddChild declares a named child requirement.  Declaring a name an
// ancestor already declares overrides it for this type and its subtypes.
func (ct *CompositionType) AddChild(name string, req patchbay.Requirements) {
	if req == nil {
		panic(fmt.Sprintf("modelkit: %s: child %q needs a requirement", ct.name, name))
	}
	if ct.children == nil {
		ct.children = make(map[string]patchbay.Requirements)
	}
	ct.children[name] = req
}

// Child returns the requirement for a named child, looking through
// ancestor compositions.
func (ct *CompositionType) Child(name string) (patchbay.Requirements, bool) {
	for c := componentModel(ct); c != nil; c = c.core().parent {
		comp, ok := c.(*CompositionType)
		if !ok {
			break
		}
		if req, ok := comp.children[name]; ok {
			return req, true
		}
	}
	return nil, false
}

// Children returns all child requirements, ancestor declarations included,
// with overrides applied.
func (ct *CompositionType) Children() map[string]patchbay.Requirements {
	out := make(map[string]patchbay.Requirements)
	var lineage []*CompositionType
	for c := componentModel(ct); c != nil; c = c.core().parent {
		comp, ok := c.(*CompositionType)
		if !ok {
			break
		}
		lineage = append(lineage, comp)
	}
	// ancestors first so that derived declarations override them
	for i := len(lineage) - 1; i >= 0; i-- {
		for name, req := range lineage[i].children {
			out[name] = req
		}
	}
	return out
}

func provide(self componentModel, name string, srv *ServiceType, portMap map[string]string) *BoundService {
	core := self.core()
	if srv == nil {
		panic(fmt.Sprintf("modelkit: %s: Provides needs a service type", core.name))
	}
	if name == "" {
		panic(fmt.Sprintf("modelkit: %s: Provides needs a service name", core.name))
	}
	for _, bs := range core.provided {
		if bs.name == name {
			panic(fmt.Sprintf("modelkit: %s already provides a service named %q", core.name, name))
		}
	}
	mapped := make(map[string]string, len(portMap))
	for from, to := range portMap {
		mapped[from] = to
	}
	bs := &BoundService{name: name, component: self, service: srv, portMap: mapped}
	core.provided = append(core.provided, bs)
	return bs
}

func fulfills(self componentModel, m patchbay.Model) bool {
	if target, ok := m.(*BoundService); ok {
		if !fulfills(self, target.component) {
			return false
		}
		for _, bs := range allProvided(self) {
			if bs.name == target.name && bs.service.Fulfills(target.service) {
				return true
			}
		}
		return false
	}
	for c := self; c != nil; c = c.core().parent {
		if patchbay.Model(c) == m {
			return true
		}
	}
	for _, bs := range allProvided(self) {
		if bs.service.Fulfills(m) {
			return true
		}
	}
	return false
}

func eachFulfilled(self componentModel, fn func(patchbay.Model) bool) {
	seen := make(map[patchbay.Model]struct{})
	stopped := false
	emit := func(m patchbay.Model) bool {
		if stopped {
			return false
		}
		if _, dup := seen[m]; dup {
			return true
		}
		seen[m] = struct{}{}
		if !fn(m) {
			stopped = true
			return false
		}
		return true
	}
	for c := self; c != nil && !c.core().root; c = c.core().parent {
		if !emit(c) {
			return
		}
	}
	for _, bs := range allProvided(self) {
		bs.service.EachFulfilledModel(emit)
		if stopped {
			return
		}
	}
}

// allProvided collects the services self provides, own declarations first,
// inherited ones after.  A name redeclared in a subtype shadows the
// ancestor's declaration.  Inherited services come back attached to self,
// so Component() always names the model the lookup went through.
func allProvided(self componentModel) []*BoundService {
	var out []*BoundService
	seen := make(map[string]struct{})
	for c := self; c != nil; c = c.core().parent {
		for _, bs := range c.core().provided {
			if _, shadowed := seen[bs.name]; shadowed {
				continue
			}
			seen[bs.name] = struct{}{}
			out = append(out, attach(self, bs))
		}
	}
	return out
}

// attach returns bs as seen from self.  A service declared by an ancestor
// gets a view bound to self instead; the view is cached on self so repeated
// lookups return the same object and identity comparisons keep working.
func attach(self componentModel, bs *BoundService) *BoundService {
	if bs.component == self {
		return bs
	}
	core := self.core()
	core.mu.Lock()
	defer core.mu.Unlock()
	if att, ok := core.attached[bs]; ok {
		return att
	}
	if core.attached == nil {
		core.attached = make(map[*BoundService]*BoundService)
	}
	att := &BoundService{name: bs.name, component: self, service: bs.service, portMap: bs.portMap}
	core.attached[bs] = att
	return att
}

func findService(self componentModel, required patchbay.ServiceModel) (patchbay.BoundService, error) {
	var matches []patchbay.BoundService
	for _, bs := range allProvided(self) {
		if bs.service.Fulfills(required) {
			matches = append(matches, bs)
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, &patchbay.AmbiguousServiceError{
			Component:  self,
			Required:   required,
			Candidates: matches,
		}
	}
}

func findServiceByName(self componentModel, name string) (patchbay.BoundService, bool) {
	for _, bs := range allProvided(self) {
		if bs.name == name {
			return bs, true
		}
	}
	return nil, false
}

func mergeModels(self componentModel, other patchbay.ComponentModel) (patchbay.ComponentModel, error) {
	if other == nil || patchbay.Model(self) == patchbay.Model(other) {
		return self, nil
	}
	if self.Fulfills(other) {
		return self, nil
	}
	if other.Fulfills(self) {
		return other, nil
	}
	return nil, &IncompatibleModelsError{A: self, B: other}
}
