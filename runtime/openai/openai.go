// Package openai provides a runtime.Runtime implementation backed by the
// OpenAI Chat Completions API (including function/tool calling). It adapts
// flowbudget's normalized Request/Response structures into the SDK's message
// format and back, and surfaces the provider-reported token usage so accounting
// can prefer real counts over local estimates.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/flowbudget/runtime"
)

// Options configure the OpenAI runtime adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Runtime wraps the OpenAI Chat Completions API behind the generic runtime.Runtime interface.
type Runtime struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI runtime using the official client.
func New(optFns ...func(o *Options)) *Runtime {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI runtime from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runtime{client: client, opts: opts}
}

// Invoke implements runtime.Runtime. The call is synchronous: it blocks until
// the provider returns a complete response or fails.
func (r *Runtime) Invoke(ctx context.Context, req runtime.Request) (*runtime.Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               r.opts.Model,
		Temperature:         openai.Float(r.opts.Temperature),
		MaxCompletionTokens: openai.Int(r.opts.MaxCompletionTokens),
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api error: no choices returned")
	}

	ch0 := resp.Choices[0]
	out := &runtime.Response{
		Text:         ch0.Message.Content,
		FinishReason: ch0.FinishReason,
		ModelID:      resp.Model,
		Usage: &runtime.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	if out.ModelID == "" {
		out.ModelID = r.opts.Model
	}
	for _, tc := range ch0.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, runtime.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

// buildMessages converts the normalized transcript into OpenAI chat messages.
// Instructions become the leading system message.
func buildMessages(req runtime.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case runtime.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Text))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})
		case runtime.RoleTool:
			messages = append(messages, openai.ToolMessage(m.Text, m.ToolCallID))
		default:
			messages = append(messages, openai.UserMessage(m.Text))
		}
	}
	return messages
}

// buildTools converts normalized tool definitions into OpenAI function declarations.
func buildTools(defs []runtime.ToolDefinition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, len(defs))
	for i, td := range defs {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        td.Name,
				Description: openai.String(td.Description),
				Parameters:  td.Parameters,
			},
		}
	}
	return tools
}

// Info returns metadata describing this OpenAI runtime implementation.
func (r *Runtime) Info() runtime.Info {
	return runtime.Info{
		Name:          r.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
