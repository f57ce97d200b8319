// Package profile loads declarative selection profiles.  A profile is a
// YAML document naming the selections and default candidates of one
// deployment scenario; profiles layer through "uses" references, later
// layers overriding earlier ones per key, so a lab profile can extend a
// base profile and swap individual drivers.
//
// Model references in documents resolve against a ModelSource (a
// modelkit.Registry, typically).  References the source does not know stay
// as selection names, so a profile can also refer to runtime registrations
// resolved later through a directory.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ambrel/patchbay"
)

// ErrProfileCycle is wrapped by Load when profiles use each other in a
// cycle.
var ErrProfileCycle = errors.New("profile uses itself")

// ModelSource resolves model references in profile documents.
// *modelkit.Registry implements it.
type ModelSource interface {
	LookupModel(name string) (patchbay.Model, bool)
}

// Document is the YAML shape of one profile file.
type Document struct {
	// Name identifies the profile.  It must match the file's base name.
	Name string `yaml:"name" validate:"required"`

	// Uses lists profiles layered under this one, lowest first.  This
	// profile's selections override theirs; among them, later entries
	// override earlier ones.
	Uses []string `yaml:"uses,omitempty" validate:"dive,required"`

	// Selections maps requirement references to selection references.
	// A null value selects nothing for that requirement.
	Selections map[string]*string `yaml:"selections,omitempty"`

	// Defaults lists default selection candidates.
	Defaults []string `yaml:"defaults,omitempty" validate:"dive,required"`
}

// Loader reads profiles from a directory.
type Loader struct {
	dir      string
	source   ModelSource
	validate *validator.Validate
}

// NewLoader creates a loader reading profile documents from dir and
// resolving model references through source.
func NewLoader(dir string, source ModelSource) *Loader {
	return &Loader{
		dir:      dir,
		source:   source,
		validate: validator.New(),
	}
}

// Load reads the named profile, its transitive uses, and folds them into
// one selection map: lowest layer first, each layer's selections and
// defaults merged over the previous ones.
func (l *Loader) Load(name string) (*patchbay.SelectionMap, error) {
	sel := patchbay.MustSelectionMap()
	if err := l.overlay(sel, name, make(map[string]bool)); err != nil {
		return nil, err
	}
	return sel, nil
}

// overlay folds the named profile over sel, uses first.
func (l *Loader) overlay(sel *patchbay.SelectionMap, name string, loading map[string]bool) error {
	if loading[name] {
		return fmt.Errorf("profile %q: %w", name, ErrProfileCycle)
	}
	loading[name] = true
	defer delete(loading, name)

	doc, err := l.ReadDocument(name)
	if err != nil {
		return err
	}
	for _, used := range doc.Uses {
		if err := l.overlay(sel, used, loading); err != nil {
			return err
		}
	}
	layer, err := l.Selections(doc)
	if err != nil {
		return err
	}
	sel.Merge(layer)
	return nil
}

// ReadDocument reads and validates one profile file without resolving its
// uses.  Both .yaml and .yml extensions are tried.
func (l *Loader) ReadDocument(name string) (*Document, error) {
	var lastErr error
	for _, ext := range []string{"yaml", "yml"} {
		path := filepath.Join(l.dir, name+"."+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		if err := l.validate.Struct(&doc); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		if doc.Name != name {
			return nil, fmt.Errorf("profile %q: document names itself %q", name, doc.Name)
		}
		return &doc, nil
	}
	return nil, fmt.Errorf("profile %q: %w", name, lastErr)
}

// Selections builds the selection map of a single document, uses excluded.
func (l *Loader) Selections(doc *Document) (*patchbay.SelectionMap, error) {
	explicit := make(patchbay.Use, len(doc.Selections))
	for keyRef, valueRef := range doc.Selections {
		key := l.reference(keyRef)
		if valueRef == nil {
			explicit[key] = nil
			continue
		}
		explicit[key] = l.reference(*valueRef)
	}
	sel := patchbay.MustSelectionMap()
	if err := sel.AddExplicit(explicit); err != nil {
		return nil, fmt.Errorf("profile %q: %w", doc.Name, err)
	}
	for _, ref := range doc.Defaults {
		if err := sel.AddDefaults(l.reference(ref)); err != nil {
			return nil, fmt.Errorf("profile %q: %w", doc.Name, err)
		}
	}
	return sel, nil
}

// reference resolves one document reference: a known model resolves to its
// descriptor, anything else stays a selection name for the resolver to
// resolve later.
func (l *Loader) reference(ref string) patchbay.SelectionValue {
	if m, ok := l.source.LookupModel(ref); ok {
		return m
	}
	return patchbay.Name(ref)
}

// Apply loads the named profile and pushes it onto ctx.  The push resolves
// any remaining names against the context's accumulated selections and
// fails without touching the stack when one stays unresolved.
func (l *Loader) Apply(ctx *patchbay.Context, name string) error {
	sel, err := l.Load(name)
	if err != nil {
		return err
	}
	return ctx.Push(sel)
}
