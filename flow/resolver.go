package flow

import (
	"fmt"
	"os"
	"path/filepath"
)

// Resolver turns an AgentRef's config reference into a loaded AgentConfig.
type Resolver interface {
	Resolve(ref string) (*AgentConfig, error)
}

// FileResolver resolves config references as YAML files relative to a base
// directory. A reference without an extension gets ".yaml" appended.
type FileResolver struct {
	BaseDir string
}

// NewFileResolver creates a FileResolver rooted at dir.
func NewFileResolver(dir string) *FileResolver {
	return &FileResolver{BaseDir: dir}
}

// Resolve implements Resolver.
func (r *FileResolver) Resolve(ref string) (*AgentConfig, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty config reference")
	}
	name := ref
	if filepath.Ext(name) == "" {
		name += ".yaml"
	}
	data, err := os.ReadFile(filepath.Join(r.BaseDir, name))
	if err != nil {
		return nil, fmt.Errorf("resolve agent config %q: %w", ref, err)
	}
	cfg, err := ParseAgentConfig(data)
	if err != nil {
		return nil, fmt.Errorf("resolve agent config %q: %w", ref, err)
	}
	return cfg, nil
}

// StaticResolver resolves from an in-memory map, keyed by reference. Useful
// for tests and embedded configurations.
type StaticResolver map[string]*AgentConfig

// Resolve implements Resolver.
func (r StaticResolver) Resolve(ref string) (*AgentConfig, error) {
	cfg, ok := r[ref]
	if !ok {
		return nil, fmt.Errorf("unknown agent config %q", ref)
	}
	return cfg, nil
}
