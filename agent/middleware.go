// Model call middleware.
//
// Information Hiding:
// - Order in which wrappers run around the provider call
// - How superseded scene reports are rewritten
// - What is logged per model call

package agent

import (
	"context"
	"time"

	"github.com/richinex/sightline/llm"
	"github.com/richinex/sightline/tools"
	"go.uber.org/zap"
)

// DeprecatedReport replaces the content of scene reports that a later
// report supersedes.
const DeprecatedReport = "[DEPRECATED - superseded by a more recent screenshot]"

// ModelCall is one request to the planner model.
type ModelCall func(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error)

// Middleware wraps a ModelCall.
type Middleware func(next ModelCall) ModelCall

// Chain wraps call so that mws[0] runs first.
func Chain(call ModelCall, mws ...Middleware) ModelCall {
	for i := len(mws) - 1; i >= 0; i-- {
		call = mws[i](call)
	}
	return call
}

// Prune returns a copy of history in which every tool result produced by
// toolName, except the most recent one, has its content replaced by
// placeholder. Role, ToolCallID and ToolName are kept and all other
// messages are untouched. history itself is not modified.
func Prune(history []llm.ChatMessage, toolName, placeholder string) []llm.ChatMessage {
	out := make([]llm.ChatMessage, len(history))
	copy(out, history)

	seenLatest := false
	for i := len(out) - 1; i >= 0; i-- {
		if !out[i].IsToolResult(toolName) {
			continue
		}
		if !seenLatest {
			seenLatest = true
			continue
		}
		out[i].Content = placeholder
	}
	return out
}

// PruneSceneReports keeps only the latest describe_webpage report.
func PruneSceneReports(history []llm.ChatMessage) []llm.ChatMessage {
	return Prune(history, tools.DescribeWebpageName, DeprecatedReport)
}

// DeprecateOldReports is a Middleware that applies PruneSceneReports to
// the messages of every model call.
func DeprecateOldReports() Middleware {
	return func(next ModelCall) ModelCall {
		return func(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
			return next(ctx, PruneSceneReports(messages), defs)
		}
	}
}

// LogModelCalls logs each call's size, latency and outcome.
func LogModelCalls(logger *zap.Logger) Middleware {
	return func(next ModelCall) ModelCall {
		return func(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
			start := time.Now()
			resp, err := next(ctx, messages, defs)
			fields := []zap.Field{
				zap.Int("messages", len(messages)),
				zap.Duration("latency", time.Since(start)),
			}
			if err != nil {
				logger.Warn("model call failed", append(fields, zap.Error(err))...)
				return resp, err
			}
			fields = append(fields, zap.Int("tool_calls", len(resp.ToolCalls)))
			if resp.Usage != nil {
				fields = append(fields, zap.Uint32("total_tokens", resp.Usage.TotalTokens))
			}
			logger.Debug("model call", fields...)
			return resp, nil
		}
	}
}
