// Package agent runs the planner: a native tool-calling loop over the
// browser tools.
//
// This file holds what a run returns.
package agent

import (
	"github.com/richinex/sightline/llm"
)

// Step is one planner turn as seen from outside: what the model said, which
// tool it called and what came back. A final answer has no Action.
type Step struct {
	Iteration   int
	Thought     string
	Action      *string
	Observation *string
}

// ToolCall holds metrics about one tool invocation.
type ToolCall struct {
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
}

// Metadata describes how a run went.
type Metadata struct {
	RunID           string // matches the trace directory and index entries
	ExecutionTimeMs uint64
	ToolCalls       []ToolCall
	TokenUsage      *llm.TokenUsage
	LLMCalls        int // planner calls, vision calls excluded
}

// ResponseType is how a run ended.
type ResponseType int

const (
	ResponseSuccess ResponseType = iota
	ResponseFailure
	ResponseTimeout
)

func (t ResponseType) String() string {
	switch t {
	case ResponseSuccess:
		return "success"
	case ResponseFailure:
		return "failure"
	case ResponseTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Response is the outcome of a run. Which text field is set depends on Type.
type Response struct {
	Type          ResponseType
	Result        string
	Error         string
	PartialResult string
	Steps         []Step
	Metadata      Metadata
}

func succeeded(result string, steps []Step, meta Metadata) Response {
	return Response{Type: ResponseSuccess, Result: result, Steps: steps, Metadata: meta}
}

func failed(reason string, steps []Step, meta Metadata) Response {
	return Response{Type: ResponseFailure, Error: reason, Steps: steps, Metadata: meta}
}

func timedOut(steps []Step, meta Metadata) Response {
	return Response{Type: ResponseTimeout, PartialResult: "Max iterations reached", Steps: steps, Metadata: meta}
}

// ResultText returns whichever text field Type selects.
func (r Response) ResultText() string {
	switch r.Type {
	case ResponseSuccess:
		return r.Result
	case ResponseFailure:
		return r.Error
	case ResponseTimeout:
		return r.PartialResult
	default:
		return ""
	}
}

func (r Response) IsSuccess() bool { return r.Type == ResponseSuccess }
