package usage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record captures the consumption of exactly one agent invocation. It is a
// value object: build it once, never mutate it.
type Record struct {
	// InvocationID correlates the record with logs and results.
	InvocationID string
	AgentName    string
	ModelID      string
	InputTokens  int
	OutputTokens int
	// Cost in USD, computed from the pricing table at record time.
	Cost      decimal.Decimal
	Timestamp time.Time
}

// NewRecord builds a Record with a fresh invocation id and timestamp.
// Negative token counts are clamped to zero.
func NewRecord(agentName, modelID string, inputTokens, outputTokens int, cost decimal.Decimal) Record {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}
	return Record{
		InvocationID: uuid.NewString(),
		AgentName:    agentName,
		ModelID:      modelID,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		Timestamp:    time.Now().UTC(),
	}
}

// TotalTokens is always derived, never stored.
func (r Record) TotalTokens() int { return r.InputTokens + r.OutputTokens }
