// Agent configuration types.
//
// Information Hiding:
// - Default values hidden

package agent

import "github.com/richinex/sightline/tools"

// DefaultMaxIterations bounds a run when none is configured.
const DefaultMaxIterations = 40

// Config holds agent configuration.
type Config struct {
	// Name identifies the agent in logs and responses.
	Name string

	// SystemPrompt guides the planner.
	SystemPrompt string

	// MaxIterations bounds the number of planner calls per run.
	MaxIterations int

	// Tool execution settings.
	Tools tools.ToolConfig
}

// DefaultConfig returns the browser agent configuration.
func DefaultConfig() Config {
	return Config{
		Name:          "sightline",
		SystemPrompt:  DefaultSystemPrompt,
		MaxIterations: DefaultMaxIterations,
		Tools:         tools.DefaultToolConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = d.SystemPrompt
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	return c
}
