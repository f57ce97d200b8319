// Package directory is a name directory for selection values: callers
// register the components and services of a running assembly under names,
// and the directory backs the resolver's name resolution.  It plays the
// role a name service plays in a deployed system, where resolving a
// selection name means finding the live task registered under it.
package directory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ambrel/patchbay"
)

// ErrUnknownRegistration is wrapped by Deregister when the registration is
// not (or no longer) held by the directory.
var ErrUnknownRegistration = errors.New("registration unknown to the directory")

// Registration is a handle on one name binding.  Deregistering requires the
// handle, not just the name, so a re-registered name cannot be torn down by
// a stale owner.
type Registration struct {
	ID    uuid.UUID
	Name  string
	Value patchbay.SelectionValue
}

// Directory maps names to selection values.  It implements
// patchbay.NameSource, so it can back SelectionMap.ResolveNames and the
// name tables of context pushes directly.
//
// A Directory is safe for concurrent use.
type Directory struct {
	mu     sync.RWMutex
	byName map[string]*Registration
	logger *zap.Logger
}

// New returns an empty directory.  A nil logger disables logging.
func New(logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		byName: make(map[string]*Registration),
		logger: logger,
	}
}

// Register binds name to value and returns the registration handle.
// Registering a bound name replaces the binding; the previous handle
// becomes stale and can no longer deregister it.
func (d *Directory) Register(name string, value patchbay.SelectionValue) (*Registration, error) {
	if name == "" {
		return nil, fmt.Errorf("directory: registration needs a name")
	}
	switch value.(type) {
	case patchbay.ComponentModel, patchbay.ServiceModel, patchbay.BoundService, patchbay.Requirements:
	default:
		return nil, &patchbay.InvalidSelectionError{Value: value,
			Reason: "directory entries must be models, bound services, or requirements"}
	}
	reg := &Registration{ID: uuid.New(), Name: name, Value: value}
	d.mu.Lock()
	prev := d.byName[name]
	d.byName[name] = reg
	d.mu.Unlock()
	if prev != nil {
		d.logger.Info("directory registration replaced",
			zap.String("name", name),
			zap.String("id", reg.ID.String()),
			zap.String("replaced", prev.ID.String()),
		)
	} else {
		d.logger.Debug("directory registration added",
			zap.String("name", name),
			zap.String("id", reg.ID.String()),
		)
	}
	return reg, nil
}

// Deregister removes a binding.  It wraps ErrUnknownRegistration when reg
// was never registered, was already deregistered, or was replaced by a
// newer registration under the same name.
func (d *Directory) Deregister(reg *Registration) error {
	if reg == nil {
		return fmt.Errorf("directory: %w", ErrUnknownRegistration)
	}
	d.mu.Lock()
	cur, ok := d.byName[reg.Name]
	if !ok || cur.ID != reg.ID {
		d.mu.Unlock()
		return fmt.Errorf("directory: %q (%s): %w", reg.Name, reg.ID, ErrUnknownRegistration)
	}
	delete(d.byName, reg.Name)
	d.mu.Unlock()
	d.logger.Debug("directory registration removed",
		zap.String("name", reg.Name),
		zap.String("id", reg.ID.String()),
	)
	return nil
}

// LookupName implements patchbay.NameSource.
func (d *Directory) LookupName(name string) (patchbay.SelectionValue, bool) {
	d.mu.RLock()
	reg, ok := d.byName[name]
	d.mu.RUnlock()
	if !ok {
		d.logger.Debug("directory lookup missed", zap.String("name", name))
		return nil, false
	}
	return reg.Value, true
}

// Names returns the bound names, sorted.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.byName))
	for name := range d.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var _ patchbay.NameSource = &Directory{}
