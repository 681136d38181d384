// Package sqlite persists flow usage to a local SQLite database. Persistence
// is best effort: the store is a terminal export target, not a source of
// truth, and reads never mutate state.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/flowbudget/usage"
)

const createTable = `
CREATE TABLE IF NOT EXISTS flow_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	flow_name TEXT NOT NULL,
	step_index INTEGER NOT NULL,
	invocation_id TEXT NOT NULL,
	agent_name TEXT NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	cost TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_flow_usage_flow ON flow_usage(flow_name, step_index);
CREATE INDEX IF NOT EXISTS idx_flow_usage_agent ON flow_usage(agent_name);
`

// Store writes flow usage records to SQLite.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and runs auto-migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage db: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveFlowUsage appends every step of a flow run in step order. The write is
// transactional so a partially exported run never appears in queries.
func (s *Store) SaveFlowUsage(ctx context.Context, fu *usage.FlowUsage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO flow_usage
		(flow_name, step_index, invocation_id, agent_name, model, input_tokens, output_tokens, total_tokens, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare export: %w", err)
	}
	defer stmt.Close()

	for _, step := range fu.Steps() {
		r := step.Usage
		if _, err := stmt.ExecContext(ctx,
			fu.FlowName, step.StepIndex, r.InvocationID, r.AgentName, r.ModelID,
			r.InputTokens, r.OutputTokens, r.TotalTokens(), r.Cost.String(), r.Timestamp,
		); err != nil {
			return fmt.Errorf("insert step %d: %w", step.StepIndex, err)
		}
	}
	return tx.Commit()
}

// AgentSummary aggregates persisted usage for one agent.
type AgentSummary struct {
	AgentName    string
	Calls        int
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Summary returns per-agent aggregates, optionally filtered by flow name
// (empty matches all flows). Ordered by total tokens descending.
func (s *Store) Summary(ctx context.Context, flowName string) ([]AgentSummary, error) {
	query := `SELECT agent_name, COUNT(*), SUM(input_tokens), SUM(output_tokens), SUM(total_tokens)
		FROM flow_usage`
	args := []any{}
	if flowName != "" {
		query += ` WHERE flow_name = ?`
		args = append(args, flowName)
	}
	query += ` GROUP BY agent_name ORDER BY SUM(total_tokens) DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []AgentSummary
	for rows.Next() {
		var a AgentSummary
		if err := rows.Scan(&a.AgentName, &a.Calls, &a.InputTokens, &a.OutputTokens, &a.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
