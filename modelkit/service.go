// Package modelkit is a reference component-model hierarchy for the
// patchbay resolver: service types with a provides graph, task and
// composition types with single-parent subtyping and provided services,
// placeholder synthesis for service-only requirements, and a Requirements
// implementation that merges selection candidates into one concrete model.
//
// The hierarchy is deliberately small.  It implements every capability
// interface the resolver consumes and nothing else, so it doubles as the
// executable documentation for what those interfaces must do.
package modelkit

import (
	"github.com/ambrel/patchbay"
)

// BaseService is the root of every service-type hierarchy.  All service
// types fulfill it; fulfilled-model walks stop below it so that default
// candidates never bind to it.
var BaseService = &ServiceType{name: "modelkit.DataService", root: true}

// ServiceType is a data-service model.  Service types form a provides
// graph: a type fulfills itself and every type it (transitively) extends.
type ServiceType struct {
	name    string
	parents []*ServiceType
	ports   []string
	root    bool
}

// NewServiceType declares a service type extending the given parents, or
// BaseService when none are given.
func NewServiceType(name string, parents ...*ServiceType) *ServiceType {
	if len(parents) == 0 {
		parents = []*ServiceType{BaseService}
	}
	return &ServiceType{name: name, parents: parents}
}

// WithPorts declares the ports instances of this service expose, in
// addition to inherited ones.  It returns s for chaining.
func (s *ServiceType) WithPorts(names ...string) *ServiceType {
	s.ports = append(s.ports, names...)
	return s
}

// ModelName implements patchbay.Model.
func (s *ServiceType) ModelName() string { return s.name }

func (s *ServiceType) String() string { return s.name }

// Fulfills reports whether s is m or extends m.
func (s *ServiceType) Fulfills(m patchbay.Model) bool {
	other, ok := m.(*ServiceType)
	if !ok {
		return false
	}
	found := false
	s.visit(make(map[*ServiceType]struct{}), func(t *ServiceType) bool {
		if t == other {
			found = true
			return false
		}
		return true
	})
	return found
}

// EachFulfilledModel yields s and its ancestors, most derived first,
// stopping below BaseService.
func (s *ServiceType) EachFulfilledModel(fn func(patchbay.Model) bool) {
	s.visit(make(map[*ServiceType]struct{}), func(t *ServiceType) bool {
		if t.root {
			return true
		}
		return fn(t)
	})
}

// visit walks s and its ancestors depth first, self before parents.  fn
// returning false aborts the walk.
func (s *ServiceType) visit(seen map[*ServiceType]struct{}, fn func(*ServiceType) bool) bool {
	if _, dup := seen[s]; dup {
		return true
	}
	seen[s] = struct{}{}
	if !fn(s) {
		return false
	}
	for _, p := range s.parents {
		if !p.visit(seen, fn) {
			return false
		}
	}
	return true
}

// Ports returns the service's port names, own ports first, inherited ones
// after, without duplicates.
func (s *ServiceType) Ports() []string {
	var out []string
	seen := make(map[string]struct{})
	s.visit(make(map[*ServiceType]struct{}), func(t *ServiceType) bool {
		for _, p := range t.ports {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
		return true
	})
	return out
}
