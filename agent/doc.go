// Package agent adapts configured agents into budget-guarded, usage-tracked
// execution units and composes them under an orchestrator.
//
// A Unit wraps one agent (role text, model runtime, budget policy) behind a
// uniform invoke contract returning a Result. The Orchestrator is itself an
// agent whose callable capabilities are its sub-units: deciding which unit to
// call, with what input, and when to stop is delegated to the model runtime,
// while this package supplies the wiring — admission checks, usage recording
// and error capture — identically for the orchestrator's own prompts and for
// every sub-unit invocation.
//
// Failure semantics follow the hard/soft split: a budget rejection is raised
// as a Go error before the runtime is touched; a runtime fault is captured
// into the Result together with the usage already spent, so accounting is
// never silently lost.
package agent
