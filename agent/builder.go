// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default middleware order hidden

package agent

import (
	"fmt"

	"github.com/richinex/sightline/llm"
	"github.com/richinex/sightline/storage"
	"github.com/richinex/sightline/tools"
	"go.uber.org/zap"
)

// Builder provides fluent configuration for creating agents.
type Builder struct {
	config     Config
	registry   *tools.Registry
	middleware []Middleware
	store      storage.ConversationStorage
	runID      string
	logger     *zap.Logger
}

// NewBuilder creates a new agent builder with the given name.
func NewBuilder(name string) *Builder {
	cfg := DefaultConfig()
	cfg.Name = name
	return &Builder{config: cfg}
}

// SystemPrompt sets the agent's system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.config.SystemPrompt = prompt
	return b
}

// MaxIterations bounds the number of planner calls.
func (b *Builder) MaxIterations(n int) *Builder {
	b.config.MaxIterations = n
	return b
}

// ToolConfig sets tool timeout and attempts.
func (b *Builder) ToolConfig(cfg tools.ToolConfig) *Builder {
	b.config.Tools = cfg
	return b
}

// Registry sets the tools the planner may call.
func (b *Builder) Registry(r *tools.Registry) *Builder {
	b.registry = r
	return b
}

// Use appends middleware. Scene report pruning is always installed first.
func (b *Builder) Use(mws ...Middleware) *Builder {
	b.middleware = append(b.middleware, mws...)
	return b
}

// Storage saves the conversation under runID after every iteration and on exit.
func (b *Builder) Storage(store storage.ConversationStorage, runID string) *Builder {
	b.store = store
	b.runID = runID
	return b
}

// Logger sets the logger.
func (b *Builder) Logger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build creates the agent.
func (b *Builder) Build(provider llm.Provider) (*Agent, error) {
	if provider == nil {
		return nil, fmt.Errorf("agent %q: provider is required", b.config.Name)
	}
	if b.registry == nil || len(b.registry.Names()) == 0 {
		return nil, fmt.Errorf("agent %q: no tools registered", b.config.Name)
	}

	a := New(b.config, provider, b.registry, b.logger)
	if len(b.middleware) > 0 {
		a.Use(b.middleware...)
	}
	if b.store != nil {
		a.WithStorage(b.store, b.runID)
	}
	return a, nil
}
