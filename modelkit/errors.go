package modelkit

import (
	"errors"
	"fmt"

	"github.com/ambrel/patchbay"
)

// ErrDuplicateModel is wrapped by Registry.Register when a name is taken.
var ErrDuplicateModel = errors.New("model already registered")

// IncompatibleModelsError reports a merge between two component models
// where neither fulfills the other.
type IncompatibleModelsError struct {
	A, B patchbay.Model
}

func (e *IncompatibleModelsError) Error() string {
	return fmt.Sprintf("cannot merge %s with %s: neither fulfills the other",
		e.A.ModelName(), e.B.ModelName())
}
