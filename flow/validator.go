package flow

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every structural problem found in one flow
// definition, so callers can report all of them at once.
type ValidationError struct {
	Flow     string
	Problems []string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("flow %q is invalid: %s", e.Flow, strings.Join(e.Problems, "; "))
}

// Validate checks a flow definition for structural and semantic problems and
// returns them all in one pass. It never mutates the definition. A nil
// resolver skips reference resolution (syntax-only validation); with a
// resolver, every config reference must resolve and the resolved budget
// fields must be internally consistent.
func Validate(def *Definition, resolver Resolver) []string {
	var problems []string

	if def == nil {
		return []string{"flow definition is empty"}
	}
	if def.Name == "" {
		problems = append(problems, "name is required")
	}
	if len(def.SubAgents) == 0 {
		problems = append(problems, "sub_agents must not be empty")
	}

	seen := make(map[string]bool, len(def.SubAgents))
	for i, ref := range def.SubAgents {
		where := fmt.Sprintf("sub_agents[%d]", i)
		if ref.Name == "" {
			problems = append(problems, where+": name is required")
		} else if seen[ref.Name] {
			problems = append(problems, fmt.Sprintf("%s: duplicate agent name %q", where, ref.Name))
		} else {
			seen[ref.Name] = true
		}
		if ref.Description == "" {
			problems = append(problems, where+": description is required")
		}
		if ref.Config == "" {
			problems = append(problems, where+": config is required")
			continue
		}
		if resolver == nil {
			continue
		}
		cfg, err := resolver.Resolve(ref.Config)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", where, err))
			continue
		}
		if err := cfg.Config.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", where, err))
		}
	}

	if def.Orchestrator.Name == "" {
		problems = append(problems, "orchestrator.name is required")
	}
	if def.Orchestrator.Role == "" {
		problems = append(problems, "orchestrator.role is required")
	}
	if def.Orchestrator.Settings.MaxSteps < 0 {
		problems = append(problems, "orchestrator.settings.max_steps must be >= 0")
	}

	return problems
}
