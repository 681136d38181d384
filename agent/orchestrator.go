package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hupe1980/flowbudget/budget"
	"github.com/hupe1980/flowbudget/internal/util"
	"github.com/hupe1980/flowbudget/logging"
	"github.com/hupe1980/flowbudget/runtime"
	"github.com/hupe1980/flowbudget/usage"
)

// defaultMaxSteps bounds the orchestrator's reasoning loop.
const defaultMaxSteps = 10

// rosterTemplate appends the sub-agent roster to the orchestrator's role text
// so the model knows which capabilities exist and how to call them.
const rosterTemplate = `{{.Role}}

You coordinate the following agents. Invoke an agent by calling the tool with
its name, passing the text to process as "input". Agents run one at a time.

{{range .Units}}- {{.Name}}: {{.Description}}
{{end}}
When no further agent call is needed, respond with the final answer.`

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	Description string
	// Role is the orchestrator's own instruction text.
	Role string
	// ModelID used for estimation and pricing of the orchestrator's own
	// prompts. Defaults to the runtime's reported model name.
	ModelID string
	// Budget applies to the orchestrator's own prompts, exactly like any
	// other agent's.
	Budget budget.Config
	// MaxSteps bounds the reasoning loop (default 10). Exceeding it is a
	// soft stop: the best-effort result is returned with Truncated set.
	MaxSteps int
}

// Orchestrator is a coordinating agent holding a set of named execution
// units. Deciding which unit to invoke, with what input, and when to stop is
// delegated entirely to the model runtime; the orchestrator supplies the
// wiring and applies the same budget and tracking guarantees to its own
// prompts as to any sub-agent. Execution is strictly sequential.
type Orchestrator struct {
	name        string
	description string
	role        string
	modelID     string
	budget      budget.Config
	maxSteps    int
	rt          runtime.Runtime
	units       []*Unit
	byName      map[string]*Unit
	deps        Deps
	logger      *logging.FlowLogger
}

// NewOrchestrator creates an Orchestrator over the given units. Unit names
// must be unique; a later unit with a duplicate name is rejected by the flow
// validator before construction.
func NewOrchestrator(name string, rt runtime.Runtime, units []*Unit, deps Deps, optFns ...func(o *OrchestratorOptions)) *Orchestrator {
	opts := OrchestratorOptions{
		Description: fmt.Sprintf("Orchestrator %s", name),
		Role:        "You are a coordinator that delegates work to specialized agents.",
		MaxSteps:    defaultMaxSteps,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ModelID == "" {
		opts.ModelID = rt.Info().Name
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaultMaxSteps
	}

	byName := make(map[string]*Unit, len(units))
	for _, u := range units {
		byName[u.Name()] = u
	}

	return &Orchestrator{
		name:        name,
		description: opts.Description,
		role:        opts.Role,
		modelID:     opts.ModelID,
		budget:      opts.Budget,
		maxSteps:    opts.MaxSteps,
		rt:          rt,
		units:       units,
		byName:      byName,
		deps:        deps,
		logger:      logging.NewFlowLogger(deps.Logger),
	}
}

// Name returns the orchestrator's name.
func (o *Orchestrator) Name() string { return o.name }

// Description returns the orchestrator's description.
func (o *Orchestrator) Description() string { return o.description }

// Units returns the sub-agent units in registration order.
func (o *Orchestrator) Units() []*Unit {
	out := make([]*Unit, len(o.units))
	copy(out, o.units)
	return out
}

// instructions renders the orchestrator's effective system text: its role
// plus the sub-agent roster.
func (o *Orchestrator) instructions() (string, error) {
	type unitInfo struct{ Name, Description string }
	data := struct {
		Role  string
		Units []unitInfo
	}{Role: o.role}
	for _, u := range o.units {
		data.Units = append(data.Units, unitInfo{Name: u.Name(), Description: u.Description()})
	}
	return util.RenderTemplate(rosterTemplate, data)
}

// Run drives the reasoning loop until the model produces a final answer, the
// step limit is reached (soft stop, Truncated result), or a hard failure
// occurs. Budget rejections — of the orchestrator's own prompt or of any
// sub-unit — abort the run with a non-nil error wrapping budget.ErrExceeded.
// Runtime faults are soft and captured into the Result.
func (o *Orchestrator) Run(ctx context.Context, request string) (*Result, error) {
	instructions, err := o.instructions()
	if err != nil {
		return nil, fmt.Errorf("render orchestrator instructions: %w", err)
	}

	toolDefs := make([]runtime.ToolDefinition, len(o.units))
	for i, u := range o.units {
		toolDefs[i] = u.ToolDefinition()
	}

	msgs := []runtime.Message{{Role: runtime.RoleUser, Text: request}}
	start := time.Now()
	var (
		own      ownUsage
		lastText string
	)

	for step := 0; step < o.maxSteps; step++ {
		decision, err := o.deps.Guard.Admit(o.name, instructions, transcriptText(msgs), o.budget, o.modelID)
		if err != nil {
			return nil, fmt.Errorf("orchestrator %s: %w", o.name, err)
		}

		turnStart := time.Now()
		resp, callErr := o.rt.Invoke(ctx, runtime.Request{
			Instructions: instructions,
			Messages:     msgs,
			Tools:        toolDefs,
		})
		turnDur := time.Since(turnStart)

		rec := o.recordOwnTurn(decision.EstimatedTokens, resp)
		own.add(rec)
		o.logger.LogRuntimeCall(o.name, rec.ModelID, rec.TotalTokens(), turnDur, callErr)

		if callErr != nil {
			// Already-incurred cost: capture, do not raise.
			return &Result{
				Text:     lastText,
				Usage:    own.record(o.name, o.modelID),
				Duration: time.Since(start),
				Err:      &ErrorInfo{Kind: ErrorKindExecution, Message: callErr.Error()},
			}, nil
		}

		if resp.Text != "" {
			lastText = resp.Text
		}

		if len(resp.ToolCalls) == 0 {
			return &Result{
				Text:     resp.Text,
				Usage:    own.record(o.name, o.modelID),
				Duration: time.Since(start),
			}, nil
		}

		msgs = append(msgs, runtime.Message{
			Role:      runtime.RoleAssistant,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			text, err := o.dispatch(ctx, tc)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, runtime.Message{
				Role:       runtime.RoleTool,
				Text:       text,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
			})
		}
	}

	// Step limit exceeded: best-effort result, not a failure.
	o.logger.Warn("orchestrator.step_limit_exceeded", "orchestrator", o.name, "max_steps", o.maxSteps)
	return &Result{
		Text:      lastText,
		Usage:     own.record(o.name, o.modelID),
		Duration:  time.Since(start),
		Truncated: true,
	}, nil
}

// dispatch invokes one sub-unit for a tool call and renders the outcome as
// tool-result text for the model. Unit budget rejections propagate as hard
// errors; everything else (unknown agent, bad arguments, soft execution
// failures) is surfaced to the model so its reasoning can react.
func (o *Orchestrator) dispatch(ctx context.Context, tc runtime.ToolCall) (string, error) {
	unit, ok := o.byName[tc.Name]
	if !ok {
		return fmt.Sprintf("error: unknown agent %q", tc.Name), nil
	}

	var args map[string]any
	if len(tc.Arguments) > 0 {
		if err := json.Unmarshal(tc.Arguments, &args); err != nil {
			return fmt.Sprintf("error: invalid arguments: %v", err), nil
		}
	}
	if err := util.ValidateParameters(args, unitArgsSchema); err != nil {
		return fmt.Sprintf("error: %v", err), nil
	}
	input, _ := args["input"].(string)

	res, err := unit.Invoke(ctx, input)
	if err != nil {
		return "", err
	}
	if res.Failed() {
		return fmt.Sprintf("agent %s failed: %s", unit.Name(), res.Err.Message), nil
	}
	return res.String(), nil
}

// recordOwnTurn accounts one reasoning turn of the orchestrator itself.
func (o *Orchestrator) recordOwnTurn(estimated int, resp *runtime.Response) usage.Record {
	in, out, modelUsed := estimated, 0, o.modelID
	if resp != nil {
		if resp.ModelID != "" {
			modelUsed = resp.ModelID
		}
		if resp.Usage != nil {
			in, out = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
		} else {
			out = o.deps.Estimator.Estimate(resp.Text, modelUsed)
		}
	}
	rec := usage.NewRecord(o.name, modelUsed, in, out, o.deps.Pricing.Cost(modelUsed, in, out))
	o.deps.Tracker.Record(rec)
	return rec
}

// transcriptText flattens the message transcript for budget estimation.
func transcriptText(msgs []runtime.Message) string {
	var total int
	for _, m := range msgs {
		total += len(m.Text) + 1
	}
	buf := make([]byte, 0, total)
	for _, m := range msgs {
		buf = append(buf, m.Text...)
		buf = append(buf, '\n')
	}
	return string(buf)
}

// ownUsage accumulates the orchestrator's own per-turn records into the
// aggregate reported on its Result.
type ownUsage struct {
	in, out int
	cost    decimal.Decimal
}

func (a *ownUsage) add(rec usage.Record) {
	a.in += rec.InputTokens
	a.out += rec.OutputTokens
	a.cost = a.cost.Add(rec.Cost)
}

func (a *ownUsage) record(agentName, modelID string) usage.Record {
	return usage.NewRecord(agentName, modelID, a.in, a.out, a.cost)
}
