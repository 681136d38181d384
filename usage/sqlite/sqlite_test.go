package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowbudget/usage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveFlowUsageAndSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fu := usage.NewFlowUsage("summarize")
	fu.Append(usage.NewRecord("researcher", "gpt-4o", 4000, 500, decimal.RequireFromString("0.015")))
	fu.Append(usage.NewRecord("writer", "gpt-4o-mini", 1200, 300, decimal.RequireFromString("0.00036")))
	fu.Append(usage.NewRecord("researcher", "gpt-4o", 100, 50, decimal.Zero))

	require.NoError(t, s.SaveFlowUsage(ctx, fu))

	summaries, err := s.Summary(ctx, "summarize")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Ordered by total tokens descending: researcher first.
	assert.Equal(t, "researcher", summaries[0].AgentName)
	assert.Equal(t, 2, summaries[0].Calls)
	assert.Equal(t, 4100, summaries[0].InputTokens)
	assert.Equal(t, 550, summaries[0].OutputTokens)
	assert.Equal(t, 4650, summaries[0].TotalTokens)

	assert.Equal(t, "writer", summaries[1].AgentName)
	assert.Equal(t, 1500, summaries[1].TotalTokens)
}

func TestSummary_FilterByFlow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := usage.NewFlowUsage("flow-a")
	a.Append(usage.NewRecord("x", "m", 10, 5, decimal.Zero))
	b := usage.NewFlowUsage("flow-b")
	b.Append(usage.NewRecord("y", "m", 20, 10, decimal.Zero))

	require.NoError(t, s.SaveFlowUsage(ctx, a))
	require.NoError(t, s.SaveFlowUsage(ctx, b))

	got, err := s.Summary(ctx, "flow-a")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].AgentName)

	all, err := s.Summary(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSummary_EmptyStore(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Summary(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
