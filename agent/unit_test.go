package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowbudget/budget"
	"github.com/hupe1980/flowbudget/runtime"
)

func intPtr(n int) *int { return &n }

func newTestDeps() Deps {
	return NewDeps(nil, nil, nil, nil)
}

func TestUnit_InvokeSuccess(t *testing.T) {
	deps := newTestDeps()
	rt := runtime.NewMockRuntime("gpt-4o-mini", "mock")
	rt.AddResponse("do the thing", "done")

	u := NewUnit("worker", rt, deps, func(o *UnitOptions) {
		o.Role = "You are a worker."
		o.Description = "Does things"
	})

	res, err := u.Invoke(context.Background(), "do the thing")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Text)
	assert.Equal(t, "done", res.String())
	assert.False(t, res.Failed())
	assert.Equal(t, "worker", res.Usage.AgentName)
	assert.Positive(t, res.Usage.InputTokens)

	// One record landed in the shared tracker.
	assert.Equal(t, 1, deps.Tracker.Len())
	assert.Equal(t, 1, deps.Tracker.StatsFor("worker").Calls)

	hist := u.History()
	require.Len(t, hist, 1)
	assert.True(t, hist[0].Success)
}

func TestUnit_ProviderUsagePreferred(t *testing.T) {
	deps := newTestDeps()
	rt := runtime.NewMockRuntime("gpt-4o-mini", "mock")
	rt.Script(&runtime.Response{
		Text:         "answer",
		FinishReason: "stop",
		Usage:        &runtime.TokenUsage{PromptTokens: 4000, CompletionTokens: 500, TotalTokens: 4500},
	})

	u := NewUnit("researcher", rt, deps)
	res, err := u.Invoke(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, 4000, res.Usage.InputTokens)
	assert.Equal(t, 500, res.Usage.OutputTokens)
	assert.Equal(t, 4500, res.Usage.TotalTokens())
}

func TestUnit_BudgetRejectionNeverInvokesRuntime(t *testing.T) {
	deps := newTestDeps()
	rt := runtime.NewMockRuntime("gpt-4o-mini", "mock")

	u := NewUnit("worker", rt, deps, func(o *UnitOptions) {
		o.Role = "You are a very thorough assistant with a long system prompt."
		o.Budget = budget.Config{HardLimit: intPtr(1)}
	})

	res, err := u.Invoke(context.Background(), "please summarize this long document")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, budget.ErrExceeded))

	// Hard failure: the runtime was never touched and nothing was recorded.
	assert.Empty(t, rt.Calls())
	assert.Equal(t, 0, deps.Tracker.Len())
	assert.Empty(t, u.History())
}

func TestUnit_BoundaryInclusive(t *testing.T) {
	deps := newTestDeps()
	rt := runtime.NewMockRuntime("gpt-4o-mini", "mock")

	// Estimate for this prompt with the default heuristic: len/4.
	prompt := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // 40 chars -> 10 tokens
	est := deps.Estimator.Estimate(prompt, "gpt-4o-mini")

	atLimit := NewUnit("a", rt, deps, func(o *UnitOptions) {
		o.Budget = budget.Config{HardLimit: intPtr(est)}
	})
	_, err := atLimit.Invoke(context.Background(), prompt)
	assert.NoError(t, err)

	oneBelow := NewUnit("b", rt, deps, func(o *UnitOptions) {
		o.Budget = budget.Config{HardLimit: intPtr(est - 1)}
	})
	_, err = oneBelow.Invoke(context.Background(), prompt)
	assert.True(t, errors.Is(err, budget.ErrExceeded))
}

func TestUnit_SoftFailureKeepsPartialUsage(t *testing.T) {
	deps := newTestDeps()
	rt := runtime.NewMockRuntime("gpt-4o-mini", "mock")
	rt.FailNext(errors.New("connection reset"))

	u := NewUnit("worker", rt, deps, func(o *UnitOptions) { o.Role = "You are a worker." })
	res, err := u.Invoke(context.Background(), "do the thing")

	// Soft failure: no Go error, captured into the result.
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Failed())
	assert.Equal(t, ErrorKindExecution, res.Err.Kind)
	assert.Contains(t, res.Err.Message, "connection reset")
	assert.Empty(t, res.Text)

	// Partial usage is still real usage.
	assert.Positive(t, res.Usage.InputTokens)
	assert.Equal(t, 0, res.Usage.OutputTokens)
	assert.Equal(t, 1, deps.Tracker.Len())

	hist := u.History()
	require.Len(t, hist, 1)
	assert.False(t, hist[0].Success)
}

func TestUnit_HistoryIsBounded(t *testing.T) {
	deps := newTestDeps()
	rt := runtime.NewMockRuntime("gpt-4o-mini", "mock")
	u := NewUnit("worker", rt, deps, func(o *UnitOptions) { o.HistorySize = 3 })

	for i := 0; i < 10; i++ {
		_, err := u.Invoke(context.Background(), fmt.Sprintf("call %d", i))
		require.NoError(t, err)
	}
	assert.Len(t, u.History(), 3)
}

func TestUnit_ToolDefinition(t *testing.T) {
	deps := newTestDeps()
	rt := runtime.NewMockRuntime("gpt-4o-mini", "mock")
	u := NewUnit("researcher", rt, deps, func(o *UnitOptions) {
		o.Description = "Finds facts"
	})

	td := u.ToolDefinition()
	assert.Equal(t, "researcher", td.Name)
	assert.Equal(t, "Finds facts", td.Description)
	props, ok := td.Parameters["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "input")
}

func TestResult_StringNilSafe(t *testing.T) {
	var r *Result
	assert.Equal(t, "", r.String())
	assert.False(t, r.Failed())
}
