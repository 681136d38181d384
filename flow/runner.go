package flow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/flowbudget/agent"
	"github.com/hupe1980/flowbudget/logging"
	"github.com/hupe1980/flowbudget/pricing"
	"github.com/hupe1980/flowbudget/runtime"
	anthropicrt "github.com/hupe1980/flowbudget/runtime/anthropic"
	openairt "github.com/hupe1980/flowbudget/runtime/openai"
	"github.com/hupe1980/flowbudget/token"
	"github.com/hupe1980/flowbudget/usage"
)

// flowFileSuffix is the naming convention for flow documents inside a
// runner's base directory.
const flowFileSuffix = ".flow.yaml"

// RuntimeFactory builds a model runtime from a flow's model configuration.
// Injecting one lets tests and embedders substitute mock runtimes without
// touching provider credentials.
type RuntimeFactory func(cfg ModelConfig) (runtime.Runtime, error)

// DefaultRuntimeFactory supports the openai, anthropic and mock providers.
func DefaultRuntimeFactory(cfg ModelConfig) (runtime.Runtime, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return openairt.New(func(o *openairt.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case "anthropic":
		return anthropicrt.New(func(o *anthropicrt.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		}), nil
	case "mock":
		return runtime.NewMockRuntime(cfg.Model, "mock"), nil
	default:
		return nil, fmt.Errorf("unknown runtime provider %q", cfg.Provider)
	}
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Resolver loads agent configurations referenced by flow documents.
	// Defaults to a FileResolver over the runner's base directory.
	Resolver Resolver
	// RuntimeFactory builds runtimes for orchestrators and sub-agents.
	RuntimeFactory RuntimeFactory
	Estimator      *token.Estimator
	Pricing        *pricing.Table
	Logger         logging.Logger
}

// Runner loads, validates, caches and executes flow definitions. Loaded
// definitions are cached by name until explicitly invalidated, so a changed
// document on disk is picked up only after Invalidate.
type Runner struct {
	baseDir   string
	resolver  Resolver
	factory   RuntimeFactory
	estimator *token.Estimator
	prices    *pricing.Table
	logger    logging.Logger
	flowLog   *logging.FlowLogger

	mu    sync.Mutex
	cache map[string]*Definition
}

// NewRunner creates a Runner over a directory of flow documents
// (<name>.flow.yaml) and agent configuration files.
func NewRunner(baseDir string, optFns ...func(o *RunnerOptions)) *Runner {
	opts := RunnerOptions{
		Resolver:       NewFileResolver(baseDir),
		RuntimeFactory: DefaultRuntimeFactory,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Estimator == nil {
		opts.Estimator = token.NewEstimator()
	}
	if opts.Pricing == nil {
		opts.Pricing = pricing.NewTable()
	}
	return &Runner{
		baseDir:   baseDir,
		resolver:  opts.Resolver,
		factory:   opts.RuntimeFactory,
		estimator: opts.Estimator,
		prices:    opts.Pricing,
		logger:    logging.OrNoOp(opts.Logger),
		flowLog:   logging.NewFlowLogger(opts.Logger),
		cache:     make(map[string]*Definition),
	}
}

// Load parses and validates the named flow document. Results are cached by
// name; use Invalidate to force a reload after the document changes.
func (r *Runner) Load(name string) (*Definition, error) {
	r.mu.Lock()
	if def, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return def, nil
	}
	r.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(r.baseDir, name+flowFileSuffix))
	if err != nil {
		return nil, fmt.Errorf("load flow %q: %w", name, err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("load flow %q: %w", name, err)
	}
	if problems := Validate(def, r.resolver); len(problems) > 0 {
		return nil, &ValidationError{Flow: name, Problems: problems}
	}

	r.mu.Lock()
	r.cache[name] = def
	r.mu.Unlock()
	return def, nil
}

// Invalidate drops the named flow from the cache.
func (r *Runner) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, name)
}

// InvalidateAll drops every cached flow.
func (r *Runner) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*Definition)
}

// Execute resolves every sub-agent of the definition, builds the
// orchestrator, and runs it against the input. Resolution happens entirely
// before any agent is invoked: one unresolvable sub-agent means the flow
// never starts. The tracker receives every invocation record of the run
// (pass nil for run-local accounting); the returned FlowUsage holds the
// sub-agent steps in invocation order, with totals recomputed from them.
func (r *Runner) Execute(ctx context.Context, def *Definition, input string, tracker *usage.Tracker) (*agent.Result, *usage.FlowUsage, error) {
	if problems := Validate(def, r.resolver); len(problems) > 0 {
		name := ""
		if def != nil {
			name = def.Name
		}
		return nil, nil, &ValidationError{Flow: name, Problems: problems}
	}

	deps := agent.NewDeps(r.estimator, tracker, r.prices, r.logger)
	tracker = deps.Tracker

	units := make([]*agent.Unit, 0, len(def.SubAgents))
	unitNames := make(map[string]bool, len(def.SubAgents))
	for _, ref := range def.SubAgents {
		u, err := r.buildUnit(ref, deps)
		if err != nil {
			return nil, nil, err
		}
		units = append(units, u)
		unitNames[u.Name()] = true
	}

	rt, err := r.factory(def.Orchestrator.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("flow %q: orchestrator runtime: %w", def.Name, err)
	}
	orch := agent.NewOrchestrator(def.Orchestrator.Name, rt, units, deps, func(o *agent.OrchestratorOptions) {
		o.Role = def.Orchestrator.Role
		o.ModelID = def.Orchestrator.Model.Model
		o.MaxSteps = def.Orchestrator.Settings.MaxSteps
	})

	baseline := tracker.Len()
	start := time.Now()
	res, err := orch.Run(ctx, input)

	fu := usage.NewFlowUsage(def.Name)
	for _, rec := range tracker.Records()[baseline:] {
		if unitNames[rec.AgentName] {
			fu.Append(rec)
		}
	}

	r.flowLog.LogFlowRun(def.Name, fu.Len(), fu.TotalTokens(), fu.TotalCost().StringFixed(6), time.Since(start), err)
	if err != nil {
		return nil, nil, fmt.Errorf("flow %q: %w", def.Name, err)
	}
	return res, fu, nil
}

// Run is the load-and-execute convenience used by the CLI.
func (r *Runner) Run(ctx context.Context, name, input string, tracker *usage.Tracker) (*agent.Result, *usage.FlowUsage, error) {
	def, err := r.Load(name)
	if err != nil {
		return nil, nil, err
	}
	return r.Execute(ctx, def, input, tracker)
}

// buildUnit resolves one sub-agent reference into a live execution unit.
func (r *Runner) buildUnit(ref AgentRef, deps agent.Deps) (*agent.Unit, error) {
	cfg, err := r.resolver.Resolve(ref.Config)
	if err != nil {
		return nil, fmt.Errorf("sub-agent %q: %w", ref.Name, err)
	}
	rt, err := r.factory(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("sub-agent %q: %w", ref.Name, err)
	}
	return agent.NewUnit(ref.Name, rt, deps, func(o *agent.UnitOptions) {
		o.Description = ref.Description
		o.Role = cfg.Role
		o.ModelID = cfg.Model.Model
		o.Budget = cfg.Config
	}), nil
}
