// Browser tools exposed to the planner.
//
// Information Hiding:
// - How a report or a coordinate is produced (vision model, frames, trace)
// - How clicks and keystrokes reach the browser
// - Argument decoding and validation

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/richinex/sightline/grounding"
)

// Tool names as the planner sees them.
const (
	DescribeWebpageName = "describe_webpage"
	GetCoordinatesName  = "get_coordinates_for"
	ClickName           = "click"
	WriteName           = "write"
)

// Describer produces a UI state report of a freshly captured screen.
type Describer interface {
	Describe(ctx context.Context, intention string) (grounding.Report, error)
}

// Locator resolves a target description to a screen coordinate.
type Locator interface {
	Locate(ctx context.Context, query string) grounding.LocateResult
}

// Actuator performs input on the screen.
type Actuator interface {
	Click(ctx context.Context, x, y int) error
	Type(ctx context.Context, text string, pressEnter bool) error
}

// DescribeWebpageTool returns a structured description of the screen.
type DescribeWebpageTool struct {
	describer Describer
}

// NewDescribeWebpageTool creates the describe_webpage tool.
func NewDescribeWebpageTool(d Describer) *DescribeWebpageTool {
	return &DescribeWebpageTool{describer: d}
}

type describeArgs struct {
	Intention string `json:"intention"`
}

func (t *DescribeWebpageTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: DescribeWebpageName,
		Description: "Take a new screenshot and return a UI STATE REPORT of what is visible: blockers, " +
			"page context, open panels, visible fields and values, key actions. The report never " +
			"contains coordinates; use get_coordinates_for for that.",
		Parameters: []ToolParameter{{
			Name:        "intention",
			ParamType:   "string",
			Description: "What you are trying to do, so the report focuses on it. Defaults to 'general'.",
		}},
	}
}

func (t *DescribeWebpageTool) Validate(args json.RawMessage) error {
	var a describeArgs
	return decodeArgs(args, &a)
}

// Execute returns a Go error when the vision model fails so the executor
// can retry; each retry captures a new frame.
func (t *DescribeWebpageTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a describeArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}

	report, err := t.describer.Describe(ctx, a.Intention)
	if err != nil {
		return ToolResult{}, err
	}
	return SuccessResult(report.Text), nil
}

// GetCoordinatesTool locates an element on the current screen.
type GetCoordinatesTool struct {
	locator Locator
}

// NewGetCoordinatesTool creates the get_coordinates_for tool.
func NewGetCoordinatesTool(l Locator) *GetCoordinatesTool {
	return &GetCoordinatesTool{locator: l}
}

type locateArgs struct {
	Query string `json:"query"`
}

func (t *GetCoordinatesTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: GetCoordinatesName,
		Description: "Find one visible element on the current screen and return its center as JSON: " +
			`{"status":"success","x":X,"y":Y}, {"status":"not_found"} or {"status":"error","message":...}. ` +
			"Describe the element precisely, including its visible text and where it is.",
		Parameters: []ToolParameter{{
			Name:        "query",
			ParamType:   "string",
			Description: "Description of the element to locate.",
			Required:    true,
		}},
	}
}

func (t *GetCoordinatesTool) Validate(args json.RawMessage) error {
	var a locateArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	if a.Query == "" {
		return errors.New("query is required")
	}
	return nil
}

// Execute never returns a Go error; every outcome is a locate result.
func (t *GetCoordinatesTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a locateArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}
	return SuccessResult(t.locator.Locate(ctx, a.Query).String()), nil
}

// ClickTool clicks a screen coordinate.
type ClickTool struct {
	actuator Actuator
}

// NewClickTool creates the click tool.
func NewClickTool(a Actuator) *ClickTool {
	return &ClickTool{actuator: a}
}

type clickArgs struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (t *ClickTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ClickName,
		Description: "Click at screen coordinates returned by get_coordinates_for.",
		Parameters: []ToolParameter{
			{Name: "x", ParamType: "integer", Description: "Horizontal pixel coordinate.", Required: true},
			{Name: "y", ParamType: "integer", Description: "Vertical pixel coordinate.", Required: true},
		},
	}
}

func (t *ClickTool) Validate(args json.RawMessage) error {
	var a clickArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	if a.X == nil || a.Y == nil {
		return errors.New("x and y are required")
	}
	if *a.X < 0 || *a.Y < 0 {
		return fmt.Errorf("coordinates must be non-negative, got (%d, %d)", *a.X, *a.Y)
	}
	return nil
}

// Execute reports click failures in the result. A click is not idempotent,
// so it is never retried.
func (t *ClickTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a clickArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}
	if a.X == nil || a.Y == nil {
		return FailureResultf("x and y are required"), nil
	}
	if err := t.actuator.Click(ctx, *a.X, *a.Y); err != nil {
		return FailureResultf("click at (%d, %d) failed: %w", *a.X, *a.Y, err), nil
	}
	return SuccessResult(fmt.Sprintf("Clicked successfully at (%d, %d).", *a.X, *a.Y)), nil
}

// WriteTool types text into the focused element.
type WriteTool struct {
	actuator Actuator
}

// NewWriteTool creates the write tool.
func NewWriteTool(a Actuator) *WriteTool {
	return &WriteTool{actuator: a}
}

type writeArgs struct {
	Text       *string `json:"text"`
	PressEnter bool    `json:"press_enter"`
}

func (t *WriteTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        WriteName,
		Description: "Type text into the focused element. Click the field first.",
		Parameters: []ToolParameter{
			{Name: "text", ParamType: "string", Description: "Text to type.", Required: true},
			{Name: "press_enter", ParamType: "boolean", Description: "Press Enter after typing."},
		},
	}
}

func (t *WriteTool) Validate(args json.RawMessage) error {
	var a writeArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	if a.Text == nil {
		return errors.New("text is required")
	}
	if *a.Text == "" && !a.PressEnter {
		return errors.New("text is empty and press_enter is false")
	}
	return nil
}

func (t *WriteTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a writeArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}
	if a.Text == nil {
		return FailureResultf("text is required"), nil
	}
	if err := t.actuator.Type(ctx, *a.Text, a.PressEnter); err != nil {
		return FailureResultf("typing failed: %w", err), nil
	}
	return SuccessResult(fmt.Sprintf("Typed '%s' successfully.", *a.Text)), nil
}

var (
	_ Tool = (*DescribeWebpageTool)(nil)
	_ Tool = (*GetCoordinatesTool)(nil)
	_ Tool = (*ClickTool)(nil)
	_ Tool = (*WriteTool)(nil)
)
