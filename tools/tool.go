// Package tools provides the tools the planner calls.
//
// Information Hiding:
// - Argument decoding and schema generation
// - Retry and timeout policy per call
// - Which failures the model sees and which are retried
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ToolParameter is one argument of a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"` // string, integer or boolean
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolMetadata names and documents a tool for the model.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// Schema renders the parameters as a JSON Schema object.
func (m ToolMetadata) Schema() map[string]interface{} {
	properties := make(map[string]interface{}, len(m.Parameters))
	required := []string{}
	for _, p := range m.Parameters {
		properties[p.Name] = map[string]interface{}{
			"type":        p.ParamType,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// ToolResult is what a call hands back to the model. A non-nil Error marks
// a failed action; it is reported, not retried.
type ToolResult struct {
	Output string
	Error  error
}

func (t ToolResult) Success() bool { return t.Error == nil }

// Content is the text handed back to the model.
func (t ToolResult) Content() string {
	if t.Error != nil {
		return "Error: " + t.Error.Error()
	}
	return t.Output
}

func SuccessResult(output string) ToolResult { return ToolResult{Output: output} }

func FailureResult(err error) ToolResult { return ToolResult{Error: err} }

func FailureResultf(format string, args ...interface{}) ToolResult {
	return ToolResult{Error: fmt.Errorf(format, args...)}
}

// Tool is one capability offered to the planner.
//
// Execute returns a Go error only for transient faults worth retrying.
// Outcomes the model should see, including action failures, travel in
// ToolResult.
type Tool interface {
	Metadata() ToolMetadata
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)
	// Validate checks arguments once, before the first attempt.
	Validate(args json.RawMessage) error
}

// ToolConfig bounds tool calls. The zero value uses DefaultToolTimeout and
// three attempts.
type ToolConfig struct {
	Timeout    time.Duration
	MaxRetries uint32 // total attempts, including the first
}

func (c *ToolConfig) CallTimeout() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return DefaultToolTimeout
	}
	return c.Timeout
}

func (c *ToolConfig) Retries() uint32 {
	if c == nil || c.MaxRetries == 0 {
		return 3
	}
	return c.MaxRetries
}

func DefaultToolConfig() ToolConfig {
	return ToolConfig{Timeout: DefaultToolTimeout, MaxRetries: 3}
}

// decodeArgs unmarshals tool arguments, treating empty input as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
