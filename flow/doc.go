// Package flow turns declarative YAML workflow documents into live
// orchestrated agent pipelines.
//
// A flow document names an orchestrator and a set of sub-agents, each
// referencing its own agent configuration file. The Runner loads and
// validates documents, resolves every sub-agent up front, and executes the
// resulting orchestrator sequentially, returning the final result together
// with the flow's aggregated token usage.
package flow
