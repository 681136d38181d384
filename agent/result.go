package agent

import (
	"time"

	"github.com/hupe1980/flowbudget/usage"
)

// Error kinds captured into a Result. Budget rejections are never wrapped
// here; they surface as Go errors before any runtime call.
const (
	ErrorKindExecution = "execution"
	ErrorKindTool      = "tool"
)

// ErrorInfo describes a soft failure captured during an attempted invocation.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Result is the outcome of one agent invocation. It is immutable once built:
// response text, the usage actually consumed (even on failure), and optional
// error information.
type Result struct {
	// Text is the response text. May be partial or empty when Err is set;
	// consumers must check Err before treating Text as authoritative.
	Text string
	// Usage reflects tokens consumed up to completion or failure.
	Usage usage.Record
	// Err is set for soft failures only.
	Err *ErrorInfo
	// Duration of the invocation including the runtime call.
	Duration time.Duration
	// Truncated marks a best-effort result cut short by the orchestrator's
	// step limit.
	Truncated bool
}

// String coerces the result to plain text: exactly the response text, or an
// empty string if none. Call sites that only care about "the answer" need not
// inspect the richer object.
func (r *Result) String() string {
	if r == nil {
		return ""
	}
	return r.Text
}

// Failed reports whether a soft failure was captured.
func (r *Result) Failed() bool {
	return r != nil && r.Err != nil
}
