package usage

import "github.com/shopspring/decimal"

// StepUsage tags a Record with its position in a flow run. StepIndex is
// strictly increasing and matches real invocation order.
type StepUsage struct {
	StepIndex int
	AgentName string
	Usage     Record
}

// FlowUsage aggregates usage over one flow run. It is built incrementally
// during the run and discarded (or exported) at the end. Totals are always
// recomputed from the steps, never stored, which prevents drift.
type FlowUsage struct {
	FlowName string
	steps    []StepUsage
}

// NewFlowUsage creates an empty aggregate for a named flow.
func NewFlowUsage(flowName string) *FlowUsage {
	return &FlowUsage{FlowName: flowName}
}

// Append adds a record as the next step.
func (f *FlowUsage) Append(rec Record) {
	f.steps = append(f.steps, StepUsage{
		StepIndex: len(f.steps),
		AgentName: rec.AgentName,
		Usage:     rec,
	})
}

// Steps returns a copy of the per-step usage in invocation order.
func (f *FlowUsage) Steps() []StepUsage {
	out := make([]StepUsage, len(f.steps))
	copy(out, f.steps)
	return out
}

// Len returns the number of steps.
func (f *FlowUsage) Len() int { return len(f.steps) }

// TotalInputTokens sums input tokens over all steps.
func (f *FlowUsage) TotalInputTokens() int {
	n := 0
	for _, s := range f.steps {
		n += s.Usage.InputTokens
	}
	return n
}

// TotalOutputTokens sums output tokens over all steps.
func (f *FlowUsage) TotalOutputTokens() int {
	n := 0
	for _, s := range f.steps {
		n += s.Usage.OutputTokens
	}
	return n
}

// TotalTokens sums all tokens over all steps.
func (f *FlowUsage) TotalTokens() int {
	return f.TotalInputTokens() + f.TotalOutputTokens()
}

// TotalCost sums per-step costs. Decimal addition keeps the sum independent
// of recording order.
func (f *FlowUsage) TotalCost() decimal.Decimal {
	var c decimal.Decimal
	for _, s := range f.steps {
		c = c.Add(s.Usage.Cost)
	}
	return c
}

// Records returns the underlying records in step order.
func (f *FlowUsage) Records() []Record {
	out := make([]Record, len(f.steps))
	for i, s := range f.steps {
		out[i] = s.Usage
	}
	return out
}
