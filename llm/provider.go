// Package llm provides LLM provider abstractions.
//
// Two callers share one Provider: the planner, which calls tools, and the
// vision client, which sends a single screenshot turn and reads raw text.
//
// Information Hiding:
// - API client initialization and authentication
// - Request/response format conversion, including image attachments
// - Provider-specific error wrapping

package llm

import (
	"context"
)

// Provider is a chat model behind one vendor API.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends messages without tools. User messages may carry images.
	Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error)

	// ChatWithTools sends messages with tool definitions.
	// The model may respond with tool calls in LLMResponse.ToolCalls.
	ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error)
}
