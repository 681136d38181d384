package runtime

import (
	"context"
	"fmt"
	"sync"
)

// MockRuntime is a lightweight in-memory Runtime useful for tests & examples.
// It supports two modes: canned responses keyed by the last user message, and
// a scripted queue of full responses (including tool calls and usage) that is
// consumed in order. Scripted responses take precedence when present.
type MockRuntime struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	script    []*Response
	failures  []error
	calls     []Request
}

// NewMockRuntime constructs a MockRuntime with tool support enabled.
func NewMockRuntime(name, provider string) *MockRuntime {
	return &MockRuntime{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockRuntime) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Script enqueues full responses returned by subsequent Invoke calls in order.
func (m *MockRuntime) Script(resps ...*Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resps...)
}

// FailNext makes the next Invoke call return err instead of a response.
func (m *MockRuntime) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, err)
}

// Calls returns a copy of every request Invoke received, in order.
func (m *MockRuntime) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Invoke implements Runtime.
func (m *MockRuntime) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return nil, err
	}

	if len(m.script) > 0 {
		resp := m.script[0]
		m.script = m.script[1:]
		if resp.ModelID == "" {
			resp.ModelID = m.info.Name
		}
		return resp, nil
	}

	var input string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			input = req.Messages[i].Text
			break
		}
	}

	text := m.responses[input]
	if text == "" {
		text = fmt.Sprintf("Mock response to: %s", input)
	}
	return &Response{
		Text:         text,
		FinishReason: "stop",
		ModelID:      m.info.Name,
	}, nil
}

// Info implements Runtime.
func (m *MockRuntime) Info() Info { return m.info }
