package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowbudget/budget"
	"github.com/hupe1980/flowbudget/runtime"
	"github.com/hupe1980/flowbudget/usage"
)

func intPtr(n int) *int { return &n }

func TestParseDefinition(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "summarize.flow.yaml"))
	require.NoError(t, err)

	def, err := ParseDefinition(data)
	require.NoError(t, err)
	assert.Equal(t, "summarize", def.Name)
	require.Len(t, def.SubAgents, 2)
	assert.Equal(t, "researcher", def.SubAgents[0].Name)
	assert.Equal(t, "writer", def.SubAgents[1].Name)
	assert.Equal(t, "coordinator", def.Orchestrator.Name)
	assert.Equal(t, "mock", def.Orchestrator.Model.Provider)
	assert.Equal(t, 6, def.Orchestrator.Settings.MaxSteps)
}

func TestParseAgentConfig(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "researcher.yaml"))
	require.NoError(t, err)

	cfg, err := ParseAgentConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "researcher", cfg.Name)
	assert.Equal(t, "researcher-model", cfg.Model.Model)
	require.NotNil(t, cfg.HardLimit)
	assert.Equal(t, 5000, *cfg.HardLimit)
	require.NotNil(t, cfg.WarningThreshold)
	assert.Equal(t, 4000, *cfg.WarningThreshold)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "broken.flow.yaml"))
	require.NoError(t, err)
	def, err := ParseDefinition(data)
	require.NoError(t, err)

	problems := Validate(def, nil)

	// Every structural problem is reported in one pass, not just the first.
	assert.Contains(t, problems, "name is required")
	assert.Contains(t, problems, `sub_agents[1]: duplicate agent name "worker"`)
	assert.Contains(t, problems, "sub_agents[1]: description is required")
	assert.Contains(t, problems, "orchestrator.name is required")
	assert.Contains(t, problems, "orchestrator.role is required")
}

func TestValidate_ResolverProblems(t *testing.T) {
	def := &Definition{
		Name: "f",
		SubAgents: []AgentRef{
			{Name: "a", Description: "d", Config: "nowhere"},
			{Name: "b", Description: "d", Config: "inconsistent"},
		},
		Orchestrator: OrchestratorConfig{Name: "o", Role: "r"},
	}
	resolver := StaticResolver{
		"inconsistent": {
			Name: "b",
			Config: budget.Config{
				HardLimit:        intPtr(100),
				WarningThreshold: intPtr(200),
			},
		},
	}

	problems := Validate(def, resolver)
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0], `unknown agent config "nowhere"`)
	assert.Contains(t, problems[1], "token_warning_threshold (200) must be <= token_budget (100)")
}

func TestValidate_EmptySubAgents(t *testing.T) {
	def := &Definition{Name: "f", Orchestrator: OrchestratorConfig{Name: "o", Role: "r"}}
	problems := Validate(def, nil)
	assert.Contains(t, problems, "sub_agents must not be empty")
}

func TestValidate_DoesNotMutate(t *testing.T) {
	def := &Definition{Name: "f"}
	_ = Validate(def, nil)
	assert.Equal(t, &Definition{Name: "f"}, def)
}

func TestFileResolver(t *testing.T) {
	r := NewFileResolver("testdata")

	cfg, err := r.Resolve("writer")
	require.NoError(t, err)
	assert.Equal(t, "writer", cfg.Name)
	require.NotNil(t, cfg.HardLimit)
	assert.Equal(t, 3000, *cfg.HardLimit)
	assert.Nil(t, cfg.WarningThreshold)

	// Explicit extension works too.
	cfg, err = r.Resolve("writer.yaml")
	require.NoError(t, err)
	assert.Equal(t, "writer", cfg.Name)

	_, err = r.Resolve("does-not-exist")
	require.Error(t, err)
}

func TestRunner_LoadValidatesAndCaches(t *testing.T) {
	r := NewRunner("testdata")

	def, err := r.Load("summarize")
	require.NoError(t, err)
	assert.Equal(t, "summarize", def.Name)

	again, err := r.Load("summarize")
	require.NoError(t, err)
	assert.Same(t, def, again)
}

func TestRunner_LoadReportsValidationError(t *testing.T) {
	r := NewRunner("testdata")

	_, err := r.Load("broken")
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "broken", ve.Flow)
	assert.Greater(t, len(ve.Problems), 1)
}

func TestRunner_InvalidatePicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	cfg := `
name: solo
role: You do everything.
model: {provider: mock, model: m}
`
	doc := `
name: tiny
sub_agents:
  - {name: solo, description: Does everything, config: solo}
orchestrator:
  name: boss
  role: Original role.
  model: {provider: mock, model: m}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "solo.yaml"), []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.flow.yaml"), []byte(doc), 0o644))

	r := NewRunner(dir)
	def, err := r.Load("tiny")
	require.NoError(t, err)
	assert.Equal(t, "Original role.", def.Orchestrator.Role)

	changed := strings.Replace(doc, "Original role.", "Changed role.", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.flow.yaml"), []byte(changed), 0o644))

	// Still cached until invalidated.
	cached, err := r.Load("tiny")
	require.NoError(t, err)
	assert.Equal(t, "Original role.", cached.Orchestrator.Role)

	r.Invalidate("tiny")
	fresh, err := r.Load("tiny")
	require.NoError(t, err)
	assert.Equal(t, "Changed role.", fresh.Orchestrator.Role)
}

func toolCall(id, name, input string) runtime.ToolCall {
	args, _ := json.Marshal(map[string]string{"input": input})
	return runtime.ToolCall{ID: id, Name: name, Arguments: args}
}

// scriptedFactory hands out pre-built mocks keyed by model name.
func scriptedFactory(mocks map[string]*runtime.MockRuntime) RuntimeFactory {
	return func(cfg ModelConfig) (runtime.Runtime, error) {
		m, ok := mocks[cfg.Model]
		if !ok {
			return nil, fmt.Errorf("no mock for model %q", cfg.Model)
		}
		return m, nil
	}
}

func TestRunner_ExecuteTwoStepFlow(t *testing.T) {
	researcher := runtime.NewMockRuntime("researcher-model", "mock")
	researcher.Script(&runtime.Response{
		Text:         "X is a thing.",
		FinishReason: "stop",
		Usage:        &runtime.TokenUsage{PromptTokens: 4000, CompletionTokens: 500, TotalTokens: 4500},
	})
	writer := runtime.NewMockRuntime("writer-model", "mock")
	writer.Script(&runtime.Response{
		Text:         "Summary: X is a thing.",
		FinishReason: "stop",
		Usage:        &runtime.TokenUsage{PromptTokens: 1200, CompletionTokens: 300, TotalTokens: 1500},
	})
	orch := runtime.NewMockRuntime("orchestrator-model", "mock")
	orch.Script(
		&runtime.Response{FinishReason: "tool_calls", ToolCalls: []runtime.ToolCall{
			toolCall("c1", "researcher", "find facts about topic X"),
		}},
		&runtime.Response{FinishReason: "tool_calls", ToolCalls: []runtime.ToolCall{
			toolCall("c2", "writer", "write a summary of: X is a thing."),
		}},
		&runtime.Response{Text: "Summary: X is a thing.", FinishReason: "stop"},
	)

	r := NewRunner("testdata", func(o *RunnerOptions) {
		o.RuntimeFactory = scriptedFactory(map[string]*runtime.MockRuntime{
			"researcher-model":   researcher,
			"writer-model":       writer,
			"orchestrator-model": orch,
		})
	})

	def, err := r.Load("summarize")
	require.NoError(t, err)

	tracker := usage.NewTracker()
	res, fu, err := r.Execute(context.Background(), def, "Summarize topic X", tracker)
	require.NoError(t, err)
	assert.Equal(t, "Summary: X is a thing.", res.Text)

	require.Equal(t, 2, fu.Len())
	steps := fu.Steps()
	assert.Equal(t, 0, steps[0].StepIndex)
	assert.Equal(t, "researcher", steps[0].AgentName)
	assert.Equal(t, 1, steps[1].StepIndex)
	assert.Equal(t, "writer", steps[1].AgentName)
	assert.Equal(t, 5200, fu.TotalInputTokens())
	assert.Equal(t, 800, fu.TotalOutputTokens())

	// The shared tracker also saw the orchestrator's own turns.
	assert.Equal(t, 3, tracker.StatsFor("coordinator").Calls)
	assert.Equal(t, 1, tracker.StatsFor("researcher").Calls)
	assert.Equal(t, 1, tracker.StatsFor("writer").Calls)
}

func TestRunner_ExecuteUnresolvableIsHard(t *testing.T) {
	orch := runtime.NewMockRuntime("orchestrator-model", "mock")
	r := NewRunner("", func(o *RunnerOptions) {
		o.Resolver = StaticResolver{}
		o.RuntimeFactory = scriptedFactory(map[string]*runtime.MockRuntime{
			"orchestrator-model": orch,
		})
	})

	def := &Definition{
		Name: "dangling",
		SubAgents: []AgentRef{
			{Name: "ghost", Description: "Does not exist", Config: "ghost"},
		},
		Orchestrator: OrchestratorConfig{
			Name:  "boss",
			Role:  "Coordinate.",
			Model: ModelConfig{Provider: "mock", Model: "orchestrator-model"},
		},
	}

	_, _, err := r.Execute(context.Background(), def, "go", nil)
	require.Error(t, err)

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	// The flow never started.
	assert.Empty(t, orch.Calls())
}

func TestRunner_ExecuteBudgetRejectionAborts(t *testing.T) {
	worker := runtime.NewMockRuntime("worker-model", "mock")
	orch := runtime.NewMockRuntime("orchestrator-model", "mock")
	orch.Script(&runtime.Response{FinishReason: "tool_calls", ToolCalls: []runtime.ToolCall{
		toolCall("c1", "worker", "a prompt that is far larger than one token"),
	}})

	r := NewRunner("", func(o *RunnerOptions) {
		o.Resolver = StaticResolver{
			"worker": {
				Name:   "worker",
				Role:   "You work.",
				Model:  ModelConfig{Provider: "mock", Model: "worker-model"},
				Config: budget.Config{HardLimit: intPtr(1)},
			},
		}
		o.RuntimeFactory = scriptedFactory(map[string]*runtime.MockRuntime{
			"worker-model":       worker,
			"orchestrator-model": orch,
		})
	})

	def := &Definition{
		Name: "strict",
		SubAgents: []AgentRef{
			{Name: "worker", Description: "Works", Config: "worker"},
		},
		Orchestrator: OrchestratorConfig{
			Name:  "boss",
			Role:  "Coordinate.",
			Model: ModelConfig{Provider: "mock", Model: "orchestrator-model"},
		},
	}

	_, _, err := r.Execute(context.Background(), def, "go", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, budget.ErrExceeded))
	assert.Empty(t, worker.Calls())
}

func TestDefaultRuntimeFactory(t *testing.T) {
	rt, err := DefaultRuntimeFactory(ModelConfig{Provider: "mock", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "mock", rt.Info().Provider)

	_, err = DefaultRuntimeFactory(ModelConfig{Provider: "carrier-pigeon"})
	require.Error(t, err)
}
