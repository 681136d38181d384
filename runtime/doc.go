// Package runtime defines the boundary to the external LLM runtime that
// actually talks to a model provider. The coordination layer requires exactly
// one capability from it: execute an effective prompt (instructions, message
// transcript, optional tool definitions) to completion and return the response
// text, any tool calls the model requested, and — when the provider reports
// them — real token counts that are more accurate than the local estimate.
//
// Sub-packages provide adapters for OpenAI (Chat Completions) and Anthropic
// (Messages). MockRuntime supports deterministic tests and examples.
package runtime
