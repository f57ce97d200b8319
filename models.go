package patchbay

// The resolver does not define a component-model hierarchy of its own.  It
// consumes one through the narrow interfaces in this file: a model answers
// "do I fulfill this contract", enumerates the contracts it fulfills, finds
// its services, and merges with other models.  Dispatch over selection keys
// and values is a variant match over these interfaces, never reflection.
//
// Model descriptors are compared by identity: the same requirement must be
// keyed by the same descriptor object, not a structurally equal one.  Any
// pointer-backed implementation gets this for free when used as a map key.
//
// A descriptor must implement exactly one of the selection variants.  The
// variant interfaces form subset chains (every ComponentModel also has a
// ServiceModel's method set, every BoundService too), so all internal
// dispatch checks the narrower variants first; see normalizeSelection.

// Model is the common surface of every descriptor in a component-model
// hierarchy.
type Model interface {
	// ModelName returns the hierarchy-wide name of the model.  Names are
	// used in diagnostics and profile references only; model identity is
	// the descriptor itself.
	ModelName() string
}

// Fulfillable is implemented by values that can answer whether they satisfy
// another model's contract.
type Fulfillable interface {
	Fulfills(m Model) bool
}

// FulfilledModelSource enumerates every model a value fulfills, outermost
// first.  Implementations stop the walk at their hierarchy roots (the base
// task-context, component, and composition models) and never yield the plain
// data-service base: those models exist in every hierarchy and must not
// receive default bindings.  fn returns false to stop the walk early.
type FulfilledModelSource interface {
	EachFulfilledModel(fn func(Model) bool)
}

// ComponentModel describes a component type: a task context, a composition,
// or any other instantiable unit of the hierarchy.
type ComponentModel interface {
	Model
	Fulfillable
	FulfilledModelSource

	// FindService returns the unique provided service of this component
	// whose type fulfills m.  It returns (nil, nil) when the component
	// provides no such service, and an *AmbiguousServiceError when it
	// provides more than one.
	FindService(m ServiceModel) (BoundService, error)

	// Merge combines this model with other into the most specific model
	// that fulfills both, failing when neither is a refinement of the
	// other.
	Merge(other ComponentModel) (ComponentModel, error)
}

// ServiceModel describes a data-service type.
type ServiceModel interface {
	Model
	Fulfillable
	FulfilledModelSource
}

// BoundService is a service model attached to the component model that
// provides it.
type BoundService interface {
	Model
	Fulfillable
	FulfilledModelSource

	// Component returns the component model providing the service.
	Component() ComponentModel

	// Service returns the provided service type.
	Service() ServiceModel

	// PortMappings maps the port names of required onto the port names
	// this bound service exposes on its component.
	PortMappings(required ServiceModel) (map[string]string, error)
}

// Requirements describes an instantiation request: the set of models an
// instance must fulfill.  Requirement specifications own mutable state, so
// selection maps deep-copy them on Dup.
type Requirements interface {
	Fulfillable

	// RequiredModels returns the models the instance must fulfill.
	RequiredModels() []Model

	// MergeCandidates folds the values selected for each required model
	// into the most specific component model implementing all of them.
	// Candidates may be component models, service models, or bound
	// services; the hierarchy decides how partially-specified candidates
	// become one concrete model.
	MergeCandidates(candidates []Model) (ComponentModel, error)

	// Dup returns an independent deep copy.
	Dup() Requirements
}

// ServiceContainer is implemented by values whose services can be looked up
// by name.  Dotted selection names ("object.service") resolve their service
// part through this interface.
type ServiceContainer interface {
	FindServiceByName(name string) (BoundService, bool)
}

// NameSource resolves bare selection names to values.
type NameSource interface {
	LookupName(name string) (SelectionValue, bool)
}

// NameMap is a NameSource backed by a plain map.
type NameMap map[string]SelectionValue

// LookupName implements NameSource.
func (m NameMap) LookupName(name string) (SelectionValue, bool) {
	v, ok := m[name]
	return v, ok
}

// Name selects by name.  Names are placeholders: they resolve to concrete
// values later, against the enclosing scope during a context push or against
// an explicit NameSource via ResolveNames.  A dotted name "object.service"
// selects a named service of the object the first segment resolves to.
type Name string

// SelectionKey identifies one requirement slot in a selection map: a Name,
// a ComponentModel, or a ServiceModel.  Anything else is rejected during
// normalization.
type SelectionKey any

// SelectionValue is what a requirement resolves to: a Name (resolved
// later), a ComponentModel, a ServiceModel, a BoundService, a Requirements
// specification, or nil.  A nil value is an explicit "use nothing for this
// key", distinct from the key being unspecified.
type SelectionValue any

// Use maps requirement keys to selected values.  It is the raw-mapping form
// accepted by NewSelectionMap, Add, and Context.Push.
type Use map[SelectionKey]SelectionValue

// InstanceSelection is the result of resolving a named requirement against
// a selection map: the concrete component model to instantiate, the bound
// service chosen for each required service model, and the aggregated port
// renames adapting those services to the requirement's expected port names.
type InstanceSelection struct {
	Component    ComponentModel
	Services     map[ServiceModel]BoundService
	PortMappings map[string]string
}
