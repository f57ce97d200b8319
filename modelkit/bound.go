package modelkit

import (
	"fmt"

	"github.com/ambrel/patchbay"
)

// BoundService is a service type attached to a specific component model.
// Provides creates one per declaration; looking a service up through a
// subtype yields a view attached to that subtype instead.  Either way the
// object for a given (component, declaration) pair is created once and
// cached, so bound services can be compared and used as map keys by
// identity like every other descriptor.
type BoundService struct {
	name      string
	component componentModel
	service   *ServiceType
	portMap   map[string]string
}

// Name returns the service's short name on its component.
func (b *BoundService) Name() string { return b.name }

// ModelName implements patchbay.Model: "component.service".
func (b *BoundService) ModelName() string {
	return b.component.ModelName() + "." + b.name
}

func (b *BoundService) String() string { return b.ModelName() }

// Component implements patchbay.BoundService.
func (b *BoundService) Component() patchbay.ComponentModel { return b.component }

// Service implements patchbay.BoundService.
func (b *BoundService) Service() patchbay.ServiceModel { return b.service }

// Fulfills reports whether the bound service can stand in for m.  Component
// models are answered by the providing component, another bound service by
// name plus component plus service type, everything else by the service
// type alone: a bound service names one specific service, it does not
// fulfill its sibling services.
func (b *BoundService) Fulfills(m patchbay.Model) bool {
	if target, ok := m.(*BoundService); ok {
		return b.name == target.name &&
			b.component.Fulfills(target.component) &&
			b.service.Fulfills(target.service)
	}
	if _, ok := m.(patchbay.ComponentModel); ok {
		return b.component.Fulfills(m)
	}
	return b.service.Fulfills(m)
}

// EachFulfilledModel yields the service type's models followed by the
// providing component's, without duplicates.
func (b *BoundService) EachFulfilledModel(fn func(patchbay.Model) bool) {
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
	b.service.EachFulfilledModel(emit)
	if stopped {
		return
	}
	b.component.EachFulfilledModel(emit)
}

// PortMappings maps required's port names onto the component's port names,
// composing required→service inheritance with the provides-time port map.
// Ports the provides declaration did not rename map to themselves.
func (b *BoundService) PortMappings(required patchbay.ServiceModel) (map[string]string, error) {
	if !b.service.Fulfills(required) {
		return nil, fmt.Errorf("%s does not fulfill %s", b.ModelName(), required.ModelName())
	}
	rt, ok := required.(*ServiceType)
	if !ok {
		return nil, fmt.Errorf("%s: port mappings need a modelkit service type, got %s",
			b.ModelName(), required.ModelName())
	}
	out := make(map[string]string)
	for _, p := range rt.Ports() {
		if to, ok := b.portMap[p]; ok {
			out[p] = to
		} else {
			out[p] = p
		}
	}
	return out, nil
}
