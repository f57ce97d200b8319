/*
Package patchbay resolves which implementation satisfies which requirement
when a robotic component network is put together.  Given a declarative set
of selections and a pool of candidate models, it produces a concrete,
consistent assignment, handling ambiguity, defaults, and scoped overrides.

Two types carry the work.

A SelectionMap binds requirement keys (names, component models, service
models) to selected values through two layers: explicit selections, which
always win, and default candidates, unkeyed values matched structurally
against any requirement the explicit layer leaves open.  Selections may
chain through other selections; queries follow chains to their end.  When
two default candidates fulfill the same model and nothing breaks the tie,
that model is deliberately left unresolved rather than decided arbitrarily.

A Context stacks selection maps as instantiation descends into nested
scopes: profile-level defaults below composition-level overrides below
instance-level ones.  Push layers a spec over the accumulated state after
resolving its names against it; Pop returns to the exact prior state; Save
and Restore checkpoint and roll back whole groups of levels.

The component-model hierarchy itself is not defined here.  The resolver
consumes one through the capability interfaces in models.go; the modelkit
subpackage provides a complete reference hierarchy, profile loads layered
selection documents, directory resolves runtime names, and obs adapts the
Tracer port to zap and prometheus.
*/
package patchbay
