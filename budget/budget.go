package budget

import (
	"errors"
	"fmt"

	"github.com/hupe1980/flowbudget/logging"
)

// ErrExceeded is the sentinel matched by errors.Is for any hard budget
// rejection.
var ErrExceeded = errors.New("token budget exceeded")

// Config is the per-agent budget policy. A nil HardLimit means unbounded; a
// nil WarningThreshold disables the soft warning. Field names mirror the
// agent configuration document.
type Config struct {
	HardLimit        *int `yaml:"token_budget,omitempty"`
	WarningThreshold *int `yaml:"token_warning_threshold,omitempty"`
}

// Validate checks internal consistency: the warning threshold, when both
// fields are set, must not exceed the hard limit.
func (c Config) Validate() error {
	if c.HardLimit != nil && *c.HardLimit < 0 {
		return fmt.Errorf("token_budget must be >= 0, got %d", *c.HardLimit)
	}
	if c.WarningThreshold != nil && *c.WarningThreshold < 0 {
		return fmt.Errorf("token_warning_threshold must be >= 0, got %d", *c.WarningThreshold)
	}
	if c.HardLimit != nil && c.WarningThreshold != nil && *c.WarningThreshold > *c.HardLimit {
		return fmt.Errorf("token_warning_threshold (%d) must be <= token_budget (%d)",
			*c.WarningThreshold, *c.HardLimit)
	}
	return nil
}

// Unbounded reports whether no limit of any kind is configured.
func (c Config) Unbounded() bool {
	return c.HardLimit == nil && c.WarningThreshold == nil
}

// ExceededError is the hard admission failure. It names the offending limit so
// callers can surface a specific rejection message.
type ExceededError struct {
	Agent           string
	EstimatedTokens int
	HardLimit       int
}

// Error implements error.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("agent %q: estimated prompt size %d tokens exceeds token budget of %d",
		e.Agent, e.EstimatedTokens, e.HardLimit)
}

// Is lets errors.Is(err, ErrExceeded) match.
func (e *ExceededError) Is(target error) bool { return target == ErrExceeded }

// Decision is the outcome of an admission check that did not hard-fail.
type Decision struct {
	Agent           string
	EstimatedTokens int
	// Warned is true when the estimate reached the soft warning threshold.
	Warned bool
}

// Estimator is the slice of the token estimator the guard needs.
type Estimator interface {
	Estimate(text, modelID string) int
}

// GuardOptions configures a Guard.
type GuardOptions struct {
	Logger logging.Logger
}

// Guard performs pre-call admission checks.
type Guard struct {
	estimator Estimator
	logger    *logging.FlowLogger
}

// NewGuard creates a Guard over the given estimator.
func NewGuard(estimator Estimator, optFns ...func(o *GuardOptions)) *Guard {
	opts := GuardOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Guard{
		estimator: estimator,
		logger:    logging.NewFlowLogger(opts.Logger),
	}
}

// Admit estimates the combined role + user text and applies the agent's
// budget policy. Role text is always included in the estimate: omitting it
// under-counts real consumption. On rejection the returned error wraps
// ErrExceeded and the runtime must not be invoked.
func (g *Guard) Admit(agentName, roleText, userText string, cfg Config, modelID string) (Decision, error) {
	estimated := g.estimator.Estimate(roleText+userText, modelID)

	if cfg.HardLimit != nil && estimated > *cfg.HardLimit {
		g.logger.LogAdmission(agentName, estimated, *cfg.HardLimit, false, false)
		return Decision{}, &ExceededError{
			Agent:           agentName,
			EstimatedTokens: estimated,
			HardLimit:       *cfg.HardLimit,
		}
	}

	d := Decision{Agent: agentName, EstimatedTokens: estimated}
	if cfg.WarningThreshold != nil && estimated >= *cfg.WarningThreshold {
		d.Warned = true
		g.logger.LogAdmission(agentName, estimated, *cfg.WarningThreshold, true, true)
		return d, nil
	}

	g.logger.LogAdmission(agentName, estimated, 0, true, false)
	return d, nil
}
