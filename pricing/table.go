package pricing

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// perMillion is the rate denominator: rates are USD per 1M tokens.
var perMillion = decimal.NewFromInt(1_000_000)

// Rate holds the input and output prices of a model in USD per 1M tokens.
type Rate struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// IsZero reports whether both rates are zero (unknown or free model).
func (r Rate) IsZero() bool {
	return r.Input.IsZero() && r.Output.IsZero()
}

// rate is a construction helper for the default table.
func rate(input, output string) Rate {
	return Rate{
		Input:  decimal.RequireFromString(input),
		Output: decimal.RequireFromString(output),
	}
}

// Table maps model identifiers to rates. Lookups normalize the model id
// (trimmed, lowercased) so provider-reported ids match registered keys.
// Registration at runtime is supported; a Table is safe for concurrent reads
// with occasional writes.
type Table struct {
	mu    sync.RWMutex
	rates map[string]Rate
}

// NewTable creates a Table seeded with published rates for common models.
// Entries are a convenience, not an authority: override with Register when
// rates change or a custom deployment has negotiated pricing.
func NewTable() *Table {
	return &Table{
		rates: map[string]Rate{
			"gpt-4o":                     rate("2.50", "10.00"),
			"gpt-4o-mini":                rate("0.15", "0.60"),
			"gpt-4.1":                    rate("2.00", "8.00"),
			"gpt-4.1-mini":               rate("0.40", "1.60"),
			"o3-mini":                    rate("1.10", "4.40"),
			"claude-3-5-sonnet-20241022": rate("3.00", "15.00"),
			"claude-3-5-haiku-20241022":  rate("0.80", "4.00"),
			"claude-3-opus-20240229":     rate("15.00", "75.00"),
			"claude-sonnet-4-20250514":   rate("3.00", "15.00"),
		},
	}
}

// Register sets or overrides the rate for a model id.
func (t *Table) Register(modelID string, r Rate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rates[normalize(modelID)] = r
}

// RateFor returns the rate for a model id. Unknown models return a zero Rate
// and false rather than an error.
func (t *Table) RateFor(modelID string) (Rate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rates[normalize(modelID)]
	return r, ok
}

// Cost computes the cost of a call in USD. Negative token counts are treated
// as zero.
func (t *Table) Cost(modelID string, inputTokens, outputTokens int) decimal.Decimal {
	r, _ := t.RateFor(modelID)
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}
	in := decimal.NewFromInt(int64(inputTokens)).Mul(r.Input).Div(perMillion)
	out := decimal.NewFromInt(int64(outputTokens)).Mul(r.Output).Div(perMillion)
	return in.Add(out)
}

func normalize(modelID string) string {
	return strings.ToLower(strings.TrimSpace(modelID))
}
