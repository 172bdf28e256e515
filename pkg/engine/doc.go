// Package engine is the composition root that assembles the provider
// adapter, toolbox, and history store from configuration and exposes them
// through a frontend-agnostic API. Frontends interact with Engine and
// Session, observe activity through the orchestrator's EventBus, and never
// wire lower-level packages directly.
package engine
