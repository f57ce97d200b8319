package modelkit

import (
	"fmt"
	"strings"

	"github.com/ambrel/patchbay"
)

// Placeholder synthesizes a component model standing for "some component
// extending base that provides all of services".  Requirement merges use it
// when the selected candidates name services no single concrete component
// covers.  A nil base roots the placeholder under BaseTask.
//
// Each call creates a fresh model: two placeholders over the same set are
// distinct identities.
func Placeholder(base patchbay.ComponentModel, services ...*ServiceType) (*TaskType, error) {
	parent := componentModel(BaseTask)
	parts := make([]string, 0, len(services)+1)
	if base != nil {
		cm, ok := base.(componentModel)
		if !ok {
			return nil, fmt.Errorf("placeholder base %s is not a modelkit component model",
				base.ModelName())
		}
		parent = cm
		parts = append(parts, base.ModelName())
	}
	for _, srv := range services {
		parts = append(parts, srv.ModelName())
	}
	t := &TaskType{componentCore{
		name:   "placeholder(" + strings.Join(parts, ",") + ")",
		parent: parent,
	}}
	for i, srv := range services {
		provide(t, fmt.Sprintf("m%d", i), srv, nil)
	}
	return t, nil
}
