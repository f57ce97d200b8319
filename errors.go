package patchbay

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/muir/reflectutils"
)

// ErrNoSavepoint is returned by Context.Restore when no savepoint is
// recorded.
var ErrNoSavepoint = errors.New("save/restore stack is empty")

// InvalidSelectionError reports a selection key or value that is not one of
// the allowed variants.
type InvalidSelectionError struct {
	Key    SelectionKey
	Value  SelectionValue
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	if e.Key == nil && e.Value == nil {
		return "invalid selection: " + e.Reason
	}
	return fmt.Sprintf("invalid selection %s => %s: %s",
		describeSelection(e.Key), describeSelection(e.Value), e.Reason)
}

// IncompatibleSelectionError reports a value selected for a model whose
// contract the value does not fulfill.
type IncompatibleSelectionError struct {
	Key   Model
	Value SelectionValue
}

func (e *IncompatibleSelectionError) Error() string {
	return fmt.Sprintf("cannot select %s for %s: it does not fulfill the required model",
		describeSelection(e.Value), describeSelection(e.Key))
}

// AmbiguousServiceError reports a component model providing more than one
// service that fulfills a required service model.
type AmbiguousServiceError struct {
	Component  ComponentModel
	Required   ServiceModel
	Candidates []BoundService
}

func (e *AmbiguousServiceError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.ModelName()
	}
	sort.Strings(names)
	return fmt.Sprintf("%d services of %s match %s: %s",
		len(e.Candidates), describeSelection(e.Component), describeSelection(e.Required),
		strings.Join(names, ", "))
}

// NameResolutionError reports selection names that could not be resolved.
// Detail carries the reason when a name resolved partially, for instance
// when the service part of a dotted name does not exist.
type NameResolutionError struct {
	Names  []string
	Detail string
}

func (e *NameResolutionError) Error() string {
	msg := "cannot resolve names: " + strings.Join(e.Names, ", ")
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// SelectionCycleError reports an explicit selection chain that never reaches
// a terminal value.
type SelectionCycleError struct {
	Key SelectionKey
}

func (e *SelectionCycleError) Error() string {
	return fmt.Sprintf("selection chain starting at %s does not terminate",
		describeSelection(e.Key))
}

// Describe renders a selection key or value for diagnostics.  Models
// render by name, names by their text, everything else by type.  Error
// messages and tracer adapters use it; it has no semantic role.
func Describe(v any) string { return describeSelection(v) }

func describeSelection(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case Name:
		return fmt.Sprintf("name %q", string(v))
	case Model:
		return v.ModelName()
	default:
		return reflectutils.TypeName(reflect.TypeOf(v))
	}
}
