package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/flowbudget/budget"
	"github.com/hupe1980/flowbudget/logging"
	"github.com/hupe1980/flowbudget/pricing"
	"github.com/hupe1980/flowbudget/runtime"
	"github.com/hupe1980/flowbudget/token"
	"github.com/hupe1980/flowbudget/usage"
)

// defaultHistorySize caps the per-unit call history so long-lived units do
// not grow without bound.
const defaultHistorySize = 32

// Deps bundles the shared accounting collaborators: estimator, admission
// guard, usage tracker and pricing table. One Deps value is typically shared
// by every unit (and the orchestrator) of a flow run so accounting lands in
// one tracker.
type Deps struct {
	Estimator *token.Estimator
	Guard     *budget.Guard
	Tracker   *usage.Tracker
	Pricing   *pricing.Table
	Logger    logging.Logger
}

// NewDeps wires a Deps from an estimator, tracker and pricing table,
// constructing the guard over the same estimator. Nil fields get safe
// defaults.
func NewDeps(estimator *token.Estimator, tracker *usage.Tracker, prices *pricing.Table, logger logging.Logger) Deps {
	if estimator == nil {
		estimator = token.NewEstimator()
	}
	if tracker == nil {
		tracker = usage.NewTracker()
	}
	if prices == nil {
		prices = pricing.NewTable()
	}
	guard := budget.NewGuard(estimator, func(o *budget.GuardOptions) { o.Logger = logger })
	return Deps{
		Estimator: estimator,
		Guard:     guard,
		Tracker:   tracker,
		Pricing:   prices,
		Logger:    logging.OrNoOp(logger),
	}
}

// CallRecord is one entry of a unit's bounded call history, kept for
// debugging and inspection.
type CallRecord struct {
	Start           time.Time
	Duration        time.Duration
	Success         bool
	EstimatedTokens int
	TotalTokens     int
}

// UnitOptions configures a Unit.
type UnitOptions struct {
	Description string
	// Role is the agent's system text; always included in budget estimation.
	Role string
	// ModelID used for estimation and pricing. Defaults to the runtime's
	// reported model name.
	ModelID string
	Budget  budget.Config
	// HistorySize caps the retained call history (default 32).
	HistorySize int
}

// Unit adapts one configured agent into an invocable capability with a
// uniform invoke contract, callable by an Orchestrator as if it were a tool.
type Unit struct {
	name        string
	description string
	role        string
	modelID     string
	budget      budget.Config
	rt          runtime.Runtime
	deps        Deps
	logger      *logging.FlowLogger

	mu      sync.Mutex
	history []CallRecord
	histCap int
}

// NewUnit creates a Unit for the given runtime and shared dependencies.
func NewUnit(name string, rt runtime.Runtime, deps Deps, optFns ...func(o *UnitOptions)) *Unit {
	opts := UnitOptions{
		Description: fmt.Sprintf("Agent %s", name),
		HistorySize: defaultHistorySize,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ModelID == "" {
		opts.ModelID = rt.Info().Name
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaultHistorySize
	}
	return &Unit{
		name:        name,
		description: opts.Description,
		role:        opts.Role,
		modelID:     opts.ModelID,
		budget:      opts.Budget,
		rt:          rt,
		deps:        deps,
		logger:      logging.NewFlowLogger(deps.Logger),
		histCap:     opts.HistorySize,
	}
}

// Name returns the unit's unique name within its flow.
func (u *Unit) Name() string { return u.name }

// Description returns the capability description read by the orchestrator's
// reasoning.
func (u *Unit) Description() string { return u.description }

// Budget returns the unit's budget policy.
func (u *Unit) Budget() budget.Config { return u.budget }

// ToolDefinition exposes the unit to a model as a callable tool with a fixed
// single-argument schema.
func (u *Unit) ToolDefinition() runtime.ToolDefinition {
	return runtime.ToolDefinition{
		Name:        u.name,
		Description: u.description,
		Parameters:  unitArgsSchema,
	}
}

// unitArgsSchema is the fixed parameter shape of every unit-as-tool.
var unitArgsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"input": map[string]any{
			"type":        "string",
			"description": "The text for the agent to process",
		},
	},
	"required": []string{"input"},
}

// Invoke runs the unit against the given text. Admission is checked before
// the runtime is touched: a budget rejection returns a non-nil error wrapping
// budget.ErrExceeded and nothing is spent. Runtime faults are soft: they are
// captured into the Result together with the usage consumed up to the
// failure, and err is nil.
func (u *Unit) Invoke(ctx context.Context, text string) (*Result, error) {
	decision, err := u.deps.Guard.Admit(u.name, u.role, text, u.budget, u.modelID)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", u.name, err)
	}

	req := runtime.Request{
		Instructions: u.role,
		Messages:     []runtime.Message{{Role: runtime.RoleUser, Text: text}},
	}

	start := time.Now()
	resp, callErr := u.rt.Invoke(ctx, req)
	dur := time.Since(start)

	inTokens, outTokens, modelUsed := u.accountTokens(decision.EstimatedTokens, resp)
	cost := u.deps.Pricing.Cost(modelUsed, inTokens, outTokens)
	rec := usage.NewRecord(u.name, modelUsed, inTokens, outTokens, cost)
	u.deps.Tracker.Record(rec)

	u.logger.LogRuntimeCall(u.name, modelUsed, rec.TotalTokens(), dur, callErr)
	u.appendHistory(CallRecord{
		Start:           start,
		Duration:        dur,
		Success:         callErr == nil,
		EstimatedTokens: decision.EstimatedTokens,
		TotalTokens:     rec.TotalTokens(),
	})

	if callErr != nil {
		return &Result{
			Usage:    rec,
			Duration: dur,
			Err:      &ErrorInfo{Kind: ErrorKindExecution, Message: callErr.Error()},
		}, nil
	}

	return &Result{
		Text:     resp.Text,
		Usage:    rec,
		Duration: dur,
	}, nil
}

// accountTokens prefers provider-reported counts; without them the admission
// estimate covers the input side and the response text is estimated for the
// output side. On failure the prompt-side estimate is kept as partial usage.
func (u *Unit) accountTokens(estimated int, resp *runtime.Response) (in, out int, modelUsed string) {
	modelUsed = u.modelID
	if resp == nil {
		return estimated, 0, modelUsed
	}
	if resp.ModelID != "" {
		modelUsed = resp.ModelID
	}
	if resp.Usage != nil {
		return resp.Usage.PromptTokens, resp.Usage.CompletionTokens, modelUsed
	}
	return estimated, u.deps.Estimator.Estimate(resp.Text, modelUsed), modelUsed
}

func (u *Unit) appendHistory(cr CallRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.history = append(u.history, cr)
	if len(u.history) > u.histCap {
		u.history = u.history[len(u.history)-u.histCap:]
	}
}

// History returns a copy of the bounded call history, oldest first.
func (u *Unit) History() []CallRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]CallRecord, len(u.history))
	copy(out, u.history)
	return out
}
