// Package obs adapts the patchbay Tracer port to standard observability
// backends: structured logging through zap and event counting through
// prometheus.  The resolver itself never imports either; callers that want
// visibility into resolution install one of these tracers (or both, via
// Multi) on their maps and contexts.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ambrel/patchbay"
)

// Zap returns a Tracer that logs every resolution event on logger at debug
// level, with the event's fields attached.  Name-resolution events with
// leftover names log at warn level instead, since unresolved names usually
// precede a failed push.
func Zap(logger *zap.Logger) patchbay.Tracer {
	return &zapTracer{logger: logger}
}

type zapTracer struct {
	logger *zap.Logger
}

func (t *zapTracer) Trace(ev patchbay.TraceEvent) {
	fields := make([]zap.Field, 0, 5)
	if ev.Key != nil {
		fields = append(fields, zap.String("key", patchbay.Describe(ev.Key)))
	}
	if ev.Value != nil {
		fields = append(fields, zap.String("value", patchbay.Describe(ev.Value)))
	}
	if ev.Names != nil {
		fields = append(fields, zap.Strings("unresolved", ev.Names))
	}
	if ev.Depth > 0 {
		fields = append(fields, zap.Int("depth", ev.Depth))
	}
	if ev.Err != nil {
		fields = append(fields, zap.Error(ev.Err))
	}
	if ev.Op == patchbay.TraceNames && len(ev.Names) > 0 {
		t.logger.Warn("selection names unresolved", fields...)
		return
	}
	t.logger.Debug("selection "+string(ev.Op), fields...)
}

// Metrics is a Tracer that counts resolution events per operation.  It
// implements prometheus.Collector; register it with a registry to expose
// the counters.
type Metrics struct {
	events      *prometheus.CounterVec
	ambiguities prometheus.Counter
	unresolved  prometheus.Counter
}

// NewMetrics creates a Metrics tracer.  All metric names live under
// namespace (for instance "patchbay_resolver_events_total" for namespace
// "patchbay").
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolver_events_total",
				Help:      "Resolution events by operation.",
			},
			[]string{"op"},
		),
		ambiguities: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolver_ambiguities_total",
				Help:      "Models dropped from default resolution because multiple candidates fulfilled them.",
			},
		),
		unresolved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolver_unresolved_names_total",
				Help:      "Selection names left unresolved after a name-resolution pass.",
			},
		),
	}
}

// Trace implements patchbay.Tracer.
func (m *Metrics) Trace(ev patchbay.TraceEvent) {
	m.events.WithLabelValues(string(ev.Op)).Inc()
	switch ev.Op {
	case patchbay.TraceAmbiguity:
		m.ambiguities.Inc()
	case patchbay.TraceNames:
		m.unresolved.Add(float64(len(ev.Names)))
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.events.Describe(ch)
	m.ambiguities.Describe(ch)
	m.unresolved.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.events.Collect(ch)
	m.ambiguities.Collect(ch)
	m.unresolved.Collect(ch)
}

var (
	_ patchbay.Tracer      = &Metrics{}
	_ prometheus.Collector = &Metrics{}
)

// Multi fans events out to several tracers in order.
func Multi(tracers ...patchbay.Tracer) patchbay.Tracer {
	return patchbay.TracerFunc(func(ev patchbay.TraceEvent) {
		for _, t := range tracers {
			t.Trace(ev)
		}
	})
}
