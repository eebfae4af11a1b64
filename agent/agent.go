// Planner loop over native tool calling.
//
// All agent execution goes through this module.
//
// Information Hiding:
// - Loop internals hidden
// - Middleware chain around the provider call hidden
// - Tool execution coordination hidden
// - Conversation persistence hidden

package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/richinex/sightline/llm"
	"github.com/richinex/sightline/storage"
	"github.com/richinex/sightline/tools"
	"go.uber.org/zap"
)

// Agent drives the browser tools until the planner stops calling them.
type Agent struct {
	config     Config
	provider   llm.Provider
	registry   *tools.Registry
	executor   *tools.Executor
	middleware []Middleware
	storage    storage.ConversationStorage
	runID      string
	logger     *zap.Logger
}

// New creates an agent. Scene report pruning is installed as the first
// middleware.
func New(config Config, provider llm.Provider, registry *tools.Registry, logger *zap.Logger) *Agent {
	config = config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("agent")

	return &Agent{
		config:     config,
		provider:   provider,
		registry:   registry,
		executor:   tools.NewExecutor(config.Tools),
		middleware: []Middleware{DeprecateOldReports(), LogModelCalls(logger)},
		logger:     logger,
	}
}

// Use appends middleware after the built-in ones.
func (a *Agent) Use(mws ...Middleware) *Agent {
	a.middleware = append(a.middleware, mws...)
	return a
}

// WithStorage enables conversation persistence.
func (a *Agent) WithStorage(store storage.ConversationStorage, runID string) *Agent {
	a.storage = store
	a.runID = runID
	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Execute runs a task from a fresh conversation.
func (a *Agent) Execute(ctx context.Context, task string) Response {
	return a.ExecuteWithHistory(ctx, task, nil)
}

// ExecuteWithHistory runs a task after the given conversation. A system
// prompt is added only when history is empty.
func (a *Agent) ExecuteWithHistory(ctx context.Context, task string, history []llm.ChatMessage) Response {
	startTime := time.Now()
	var steps []Step
	var toolCalls []ToolCall
	var totalUsage llm.TokenUsage
	var llmCalls int

	meta := func() Metadata {
		usage := totalUsage
		return Metadata{
			RunID:           a.runID,
			ExecutionTimeMs: uint64(time.Since(startTime).Milliseconds()),
			ToolCalls:       toolCalls,
			TokenUsage:      &usage,
			LLMCalls:        llmCalls,
		}
	}

	conversation := append([]llm.ChatMessage(nil), history...)
	if len(conversation) == 0 {
		conversation = append(conversation, llm.SystemMessage(a.config.SystemPrompt))
	}
	conversation = append(conversation, llm.UserMessage(task))

	call := Chain(a.provider.ChatWithTools, a.middleware...)
	defs := a.registry.Definitions()
	maxIterations := a.config.MaxIterations

	a.logger.Info("run started",
		zap.String("task", task),
		zap.String("provider", a.provider.Name()),
		zap.String("model", a.provider.Model()),
		zap.Int("max_iterations", maxIterations))

	for iteration := 0; iteration < maxIterations; iteration++ {
		if ctx.Err() != nil {
			a.save(ctx, conversation)
			return failed(fmt.Sprintf("execution cancelled: %v", ctx.Err()), steps, meta())
		}

		resp, err := call(ctx, conversation, defs)
		if err != nil {
			a.save(ctx, conversation)
			return failed(fmt.Sprintf("Failed to reason: %v", err), steps, meta())
		}
		llmCalls++
		totalUsage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			result := strings.TrimSpace(resp.Content)
			if result == "" {
				result = "Task completed"
			}
			conversation = append(conversation, llm.AssistantMessage(resp.Content))
			steps = append(steps, Step{Iteration: iteration, Thought: resp.Content, Observation: &result})
			a.save(ctx, conversation)

			a.logger.Info("run finished", zap.Int("iterations", iteration+1), zap.Int("tool_calls", len(toolCalls)))
			return succeeded(result, steps, meta())
		}

		calls := withCallIDs(resp.ToolCalls, iteration)
		conversation = append(conversation, llm.AssistantToolCallMessage(resp.Content, calls))

		for _, tc := range calls {
			content, metric := a.executeTool(ctx, tc)
			toolCalls = append(toolCalls, metric)
			conversation = append(conversation, llm.ToolResultMessage(tc.ID, tc.Name, content))

			action := tc.Name
			observation := content
			steps = append(steps, Step{
				Iteration:   iteration,
				Thought:     resp.Content,
				Action:      &action,
				Observation: &observation,
			})
		}
		a.save(ctx, conversation)
	}

	a.logger.Warn("max iterations reached", zap.Int("max_iterations", maxIterations))
	return timedOut(steps, meta())
}

// executeTool runs one tool call and returns the content for the model.
func (a *Agent) executeTool(ctx context.Context, tc llm.ToolCall) (string, ToolCall) {
	startTime := time.Now()
	metric := ToolCall{Name: tc.Name, InputSize: len(tc.Arguments)}

	tool, exists := a.registry.Get(tc.Name)
	if !exists {
		content := fmt.Sprintf("Error: tool '%s' not found. Available tools: %s",
			tc.Name, strings.Join(a.registry.Names(), ", "))
		metric.OutputSize = len(content)
		return content, metric
	}

	result, err := a.executor.Execute(ctx, tool, tc.Arguments)
	if err != nil {
		result = tools.FailureResult(fmt.Errorf("tool %q failed: %w", tc.Name, err))
	}

	content := result.Content()
	metric.OutputSize = len(content)
	metric.DurationMs = uint64(time.Since(startTime).Milliseconds())
	metric.Success = result.Success()

	fields := []zap.Field{
		zap.String("tool", tc.Name),
		zap.ByteString("args", tc.Arguments),
		zap.Uint64("duration_ms", metric.DurationMs),
	}
	if result.Success() {
		a.logger.Info("tool call", fields...)
	} else {
		a.logger.Warn("tool call failed", append(fields, zap.Error(result.Error))...)
	}
	return content, metric
}

func (a *Agent) save(ctx context.Context, conversation []llm.ChatMessage) {
	if a.storage == nil || a.runID == "" {
		return
	}
	// The run may already be cancelled; the history is still worth keeping.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.storage.Save(ctx, a.runID, conversation); err != nil {
		a.logger.Warn("conversation save failed", zap.String("run", a.runID), zap.Error(err))
	}
}

// withCallIDs fills in IDs some local models leave empty, so each tool
// result can be paired with its call.
func withCallIDs(calls []llm.ToolCall, iteration int) []llm.ToolCall {
	out := make([]llm.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = fmt.Sprintf("call_%d_%d", iteration, i)
		}
		out[i] = c
	}
	return out
}
