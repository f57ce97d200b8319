package patchbay

// TraceOp identifies the resolution step that produced a TraceEvent.
type TraceOp string

const (
	// TraceNormalize is emitted for every selection pair accepted into
	// the explicit mapping, after projection.
	TraceNormalize TraceOp = "normalize"
	// TraceDefault is emitted when a default candidate binds to a model.
	TraceDefault TraceOp = "default"
	// TraceAmbiguity is emitted when two default candidates compete for
	// the same model and the model is dropped from default resolution.
	TraceAmbiguity TraceOp = "ambiguity"
	// TraceNames is emitted after a name-resolution pass, with the names
	// that remained unresolved.
	TraceNames TraceOp = "names"
	// TracePush, TracePop, TraceSave, and TraceRestore are emitted by
	// the context stack.
	TracePush    TraceOp = "push"
	TracePop     TraceOp = "pop"
	TraceSave    TraceOp = "save"
	TraceRestore TraceOp = "restore"
)

// TraceEvent describes one step of selection resolution.  Fields that do
// not apply to the step are zero.
type TraceEvent struct {
	Op    TraceOp
	Key   SelectionKey
	Value SelectionValue
	Names []string
	Depth int
	Err   error
}

// Tracer receives resolution events.  Implementations must be safe for use
// from the goroutine that owns the selection map; the resolver never calls
// a tracer concurrently with itself.
//
// Tracers observe resolution, they do not participate in it: the events a
// map emits are identical whether or not a tracer is set.
type Tracer interface {
	Trace(ev TraceEvent)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(ev TraceEvent)

// Trace implements Tracer.
func (f TracerFunc) Trace(ev TraceEvent) { f(ev) }

// NopTracer returns a Tracer that discards all events.  It is the behavior
// of maps and contexts that never had a tracer set.
func NopTracer() Tracer { return nopTracer{} }

type nopTracer struct{}

func (nopTracer) Trace(TraceEvent) {}
