// Package usage records token and cost consumption per agent invocation and
// aggregates it across multi-step flow runs.
//
// Records are created once per invocation and never mutated. The Tracker keeps
// them in insertion order for audit and export while aggregate totals are
// recomputed on demand, so reordering records can never change a total. Usage
// attached to a failed invocation is recorded exactly like any other: partial
// usage is still real usage.
package usage
