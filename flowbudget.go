// Package flowbudget provides a high-level façade over the flow runner and
// its accounting collaborators (token estimation, budget admission, pricing
// and usage tracking) enabling rapid construction of budget-aware multi-agent
// pipelines. Most applications interact with this package by:
//  1. Creating a FlowBudget via New() (optionally overriding the estimator,
//     pricing table, runtime factory or logger)
//  2. Running a declared flow by name (Run) or an in-memory definition
//     (Execute) against an input
//  3. Reading the returned result and per-flow usage aggregate, or the
//     process-wide tracker
//
// The façade delegates execution to flow.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply real provider runtimes
// and a structured logger.
package flowbudget

import (
	"context"

	"github.com/hupe1980/flowbudget/agent"
	"github.com/hupe1980/flowbudget/flow"
	"github.com/hupe1980/flowbudget/logging"
	"github.com/hupe1980/flowbudget/pricing"
	"github.com/hupe1980/flowbudget/token"
	"github.com/hupe1980/flowbudget/usage"
)

// Options configures the FlowBudget instance.
type Options struct {
	// Estimator counts prompt tokens for budget admission. Defaults to the
	// heuristic estimator; register per-model tokenizers for exact counts.
	Estimator *token.Estimator

	// Pricing maps models to per-token rates. Defaults to the built-in
	// table; register overrides for custom deployments.
	Pricing *pricing.Table

	// Resolver loads agent configurations referenced by flow documents.
	Resolver flow.Resolver

	// RuntimeFactory builds model runtimes from flow model configs.
	RuntimeFactory flow.RuntimeFactory

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// FlowBudget is the high-level façade aggregating the flow runner and the
// shared usage tracker.
type FlowBudget struct {
	runner  *flow.Runner
	tracker *usage.Tracker
}

// New creates a FlowBudget over a directory of flow documents, with optional
// overrides. Any unset collaborator is initialized with its default.
func New(baseDir string, optFns ...func(o *Options)) *FlowBudget {
	opts := Options{
		Estimator: token.NewEstimator(),
		Pricing:   pricing.NewTable(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	runner := flow.NewRunner(baseDir, func(o *flow.RunnerOptions) {
		o.Estimator = opts.Estimator
		o.Pricing = opts.Pricing
		o.Logger = opts.Logger
		if opts.Resolver != nil {
			o.Resolver = opts.Resolver
		}
		if opts.RuntimeFactory != nil {
			o.RuntimeFactory = opts.RuntimeFactory
		}
	})

	return &FlowBudget{
		runner:  runner,
		tracker: usage.NewTracker(),
	}
}

// Run loads the named flow document and executes it against the input.
func (fb *FlowBudget) Run(ctx context.Context, flowName, input string) (*agent.Result, *usage.FlowUsage, error) {
	return fb.runner.Run(ctx, flowName, input, fb.tracker)
}

// Execute runs an in-memory flow definition against the input.
func (fb *FlowBudget) Execute(ctx context.Context, def *flow.Definition, input string) (*agent.Result, *usage.FlowUsage, error) {
	return fb.runner.Execute(ctx, def, input, fb.tracker)
}

// Load parses and validates the named flow document without executing it.
func (fb *FlowBudget) Load(flowName string) (*flow.Definition, error) {
	return fb.runner.Load(flowName)
}

// Invalidate drops the named flow from the runner's cache so the next Load
// re-reads the document.
func (fb *FlowBudget) Invalidate(flowName string) { fb.runner.Invalidate(flowName) }

// Tracker returns the process-wide usage tracker shared across runs.
func (fb *FlowBudget) Tracker() *usage.Tracker { return fb.tracker }
