package flow

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/flowbudget/budget"
)

// Definition is one declarative workflow document.
type Definition struct {
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description,omitempty"`
	SubAgents    []AgentRef         `yaml:"sub_agents"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
}

// AgentRef names one sub-agent of a flow and points at its configuration
// document. The description is read by the orchestrator's reasoning, so an
// empty one would leave the model guessing what the agent is for.
type AgentRef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Config      string `yaml:"config"`
}

// ModelConfig selects a runtime provider and model.
type ModelConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Settings tunes the orchestrator's loop.
type Settings struct {
	MaxSteps  int `yaml:"max_steps,omitempty"`
	Verbosity int `yaml:"verbosity,omitempty"`
}

// OrchestratorConfig configures the coordinating agent of a flow.
type OrchestratorConfig struct {
	Name     string      `yaml:"name"`
	Role     string      `yaml:"role"`
	Model    ModelConfig `yaml:"model"`
	Settings Settings    `yaml:"settings,omitempty"`
}

// AgentConfig is one agent's standalone configuration document. The budget
// fields live inline so a document reads:
//
//	name: researcher
//	role: You find facts.
//	model: {provider: openai, model: gpt-4o-mini}
//	token_budget: 5000
//	token_warning_threshold: 4000
type AgentConfig struct {
	Name          string      `yaml:"name"`
	Role          string      `yaml:"role"`
	Model         ModelConfig `yaml:"model"`
	budget.Config `yaml:",inline"`
}

// ParseDefinition decodes a flow document. Structural problems beyond YAML
// syntax are the validator's job, not the parser's.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse flow definition: %w", err)
	}
	return &def, nil
}

// ParseAgentConfig decodes one agent configuration document.
func ParseAgentConfig(data []byte) (*AgentConfig, error) {
	var cfg AgentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse agent config: %w", err)
	}
	return &cfg, nil
}
