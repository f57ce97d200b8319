package modelkit

import (
	"fmt"
	"strings"

	"github.com/ambrel/patchbay"
)

// InstanceSpec is a patchbay.Requirements implementation: the set of models
// an instance must fulfill, plus selections that apply inside it when a
// composition instantiation descends into it.
type InstanceSpec struct {
	models     []patchbay.Model
	selections *patchbay.SelectionMap
}

// Require builds an instantiation request over the given models.  Models
// may be component models, service models, or bound services.
func Require(models ...patchbay.Model) *InstanceSpec {
	return &InstanceSpec{models: append([]patchbay.Model(nil), models...)}
}

// RequiredModels implements patchbay.Requirements.
func (s *InstanceSpec) RequiredModels() []patchbay.Model {
	return append([]patchbay.Model(nil), s.models...)
}

// Use adds selections that apply when this requirement is instantiated.
// Arguments are coerced the way patchbay.NewSelectionMap coerces them.
func (s *InstanceSpec) Use(args ...any) error {
	if s.selections == nil {
		sel, err := patchbay.NewSelectionMap(args...)
		if err != nil {
			return err
		}
		s.selections = sel
		return nil
	}
	return s.selections.Add(args...)
}

// Selections returns the requirement's own selections, nil when none were
// added.  Instantiation walks push them onto the context before resolving
// the requirement's children.
func (s *InstanceSpec) Selections() *patchbay.SelectionMap { return s.selections }

// Fulfills reports whether any required model fulfills m.
func (s *InstanceSpec) Fulfills(m patchbay.Model) bool {
	for _, rm := range s.models {
		if rm == m {
			return true
		}
		if f, ok := rm.(patchbay.Fulfillable); ok && f.Fulfills(m) {
			return true
		}
	}
	return false
}

// EachFulfilledModel yields the union of the required models' fulfilled
// models, letting a requirement serve as a default selection candidate.
func (s *InstanceSpec) EachFulfilledModel(fn func(patchbay.Model) bool) {
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
	for _, rm := range s.models {
		src, ok := rm.(patchbay.FulfilledModelSource)
		if !ok {
			continue
		}
		src.EachFulfilledModel(emit)
		if stopped {
			return
		}
	}
}

// Dup implements patchbay.Requirements.
func (s *InstanceSpec) Dup() patchbay.Requirements {
	out := &InstanceSpec{models: append([]patchbay.Model(nil), s.models...)}
	if s.selections != nil {
		out.selections = s.selections.Dup()
	}
	return out
}

// MergeCandidates folds selection candidates into one component model:
// component models and bound-service owners merge pairwise into the most
// specific one, and service models no merged component covers are wrapped
// in a placeholder over it.  No candidates means nothing to instantiate,
// which returns nil.
func (s *InstanceSpec) MergeCandidates(candidates []patchbay.Model) (patchbay.ComponentModel, error) {
	var merged patchbay.ComponentModel
	var services []*ServiceType
	for _, c := range candidates {
		switch c := c.(type) {
		case patchbay.BoundService:
			next, err := mergeComponent(merged, c.Component())
			if err != nil {
				return nil, err
			}
			merged = next
		case patchbay.ComponentModel:
			next, err := mergeComponent(merged, c)
			if err != nil {
				return nil, err
			}
			merged = next
		case *ServiceType:
			services = append(services, c)
		case patchbay.ServiceModel:
			return nil, fmt.Errorf("cannot merge %s: not a modelkit service type", c.ModelName())
		default:
			return nil, fmt.Errorf("cannot merge %s into a component model", c.ModelName())
		}
	}
	var leftover []*ServiceType
	for _, srv := range services {
		if merged != nil && merged.Fulfills(srv) {
			continue
		}
		leftover = append(leftover, srv)
	}
	if len(leftover) == 0 {
		return merged, nil
	}
	return Placeholder(merged, leftover...)
}

func (s *InstanceSpec) String() string {
	names := make([]string, len(s.models))
	for i, m := range s.models {
		names[i] = m.ModelName()
	}
	return "require(" + strings.Join(names, ",") + ")"
}

func mergeComponent(acc, next patchbay.ComponentModel) (patchbay.ComponentModel, error) {
	if acc == nil {
		return next, nil
	}
	return acc.Merge(next)
}
