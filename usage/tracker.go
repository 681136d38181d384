package usage

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Stats aggregates records for one agent (or all agents).
type Stats struct {
	Calls        int
	InputTokens  int
	OutputTokens int
	Cost         decimal.Decimal
}

// TotalTokens is derived from the aggregated counts.
func (s Stats) TotalTokens() int { return s.InputTokens + s.OutputTokens }

func (s Stats) add(r Record) Stats {
	s.Calls++
	s.InputTokens += r.InputTokens
	s.OutputTokens += r.OutputTokens
	s.Cost = s.Cost.Add(r.Cost)
	return s
}

// Tracker accumulates usage records. The record list is append-only and
// preserves call order; totals are recomputed from the list on demand so there
// is no torn state between "append" and "aggregate". A mutex keeps the public
// API safe even though flow execution is sequential by design.
type Tracker struct {
	mu      sync.Mutex
	records []Record
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker { return &Tracker{} }

// Record appends a usage record. Records associated with failed invocations
// are accepted without special-casing.
func (t *Tracker) Record(rec Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
}

// Records returns a copy of all records in insertion order.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of recorded invocations.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// StatsFor aggregates the records of one agent.
func (t *Tracker) StatsFor(agentName string) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	var s Stats
	for _, r := range t.records {
		if r.AgentName == agentName {
			s = s.add(r)
		}
	}
	return s
}

// Totals aggregates all records.
func (t *Tracker) Totals() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	var s Stats
	for _, r := range t.records {
		s = s.add(r)
	}
	return s
}

// Reset discards all records.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = nil
}
