package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/richinex/sightline/grounding"
)

type fakeDescriber struct {
	intentions []string
	errs       []error
}

func (f *fakeDescriber) Describe(ctx context.Context, intention string) (grounding.Report, error) {
	f.intentions = append(f.intentions, intention)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return grounding.Report{}, err
		}
	}
	return grounding.Report{Index: len(f.intentions) - 1, Text: "BLOCKERS: none"}, nil
}

type fakeLocator struct {
	queries []string
	result  grounding.LocateResult
}

func (f *fakeLocator) Locate(ctx context.Context, query string) grounding.LocateResult {
	f.queries = append(f.queries, query)
	return f.result
}

type fakeActuator struct {
	clicks  [][2]int
	typed   []string
	enters  []bool
	failure error
}

func (f *fakeActuator) Click(ctx context.Context, x, y int) error {
	f.clicks = append(f.clicks, [2]int{x, y})
	return f.failure
}

func (f *fakeActuator) Type(ctx context.Context, text string, pressEnter bool) error {
	f.typed = append(f.typed, text)
	f.enters = append(f.enters, pressEnter)
	return f.failure
}

func TestBrowserToolValidation(t *testing.T) {
	act := &fakeActuator{}
	tests := []struct {
		name    string
		tool    Tool
		args    string
		wantErr bool
	}{
		{"describe without args", NewDescribeWebpageTool(&fakeDescriber{}), ``, false},
		{"describe with intention", NewDescribeWebpageTool(&fakeDescriber{}), `{"intention":"login"}`, false},
		{"describe invalid json", NewDescribeWebpageTool(&fakeDescriber{}), `{invalid}`, true},
		{"locate missing query", NewGetCoordinatesTool(&fakeLocator{}), `{}`, true},
		{"locate empty query", NewGetCoordinatesTool(&fakeLocator{}), `{"query":""}`, true},
		{"locate valid", NewGetCoordinatesTool(&fakeLocator{}), `{"query":"search box"}`, false},
		{"click valid", NewClickTool(act), `{"x":10,"y":20}`, false},
		{"click origin", NewClickTool(act), `{"x":0,"y":0}`, false},
		{"click missing y", NewClickTool(act), `{"x":10}`, true},
		{"click negative", NewClickTool(act), `{"x":-1,"y":20}`, true},
		{"click string coordinate", NewClickTool(act), `{"x":"10","y":20}`, true},
		{"write valid", NewWriteTool(act), `{"text":"hello"}`, false},
		{"write enter only", NewWriteTool(act), `{"text":"","press_enter":true}`, false},
		{"write nothing", NewWriteTool(act), `{"text":""}`, true},
		{"write missing text", NewWriteTool(act), `{"press_enter":true}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tool.Validate(json.RawMessage(tt.args))
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDescribeWebpageToolReturnsReport(t *testing.T) {
	d := &fakeDescriber{}
	tool := NewDescribeWebpageTool(d)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"intention":"find the cart"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "BLOCKERS: none" {
		t.Errorf("unexpected output %q", result.Output)
	}
	if d.intentions[0] != "find the cart" {
		t.Errorf("intention not forwarded: %q", d.intentions[0])
	}
}

func TestDescribeWebpageToolSurfacesVisionErrors(t *testing.T) {
	d := &fakeDescriber{errs: []error{errors.New("vision model failed on frame 0: boom")}}
	tool := NewDescribeWebpageTool(d)

	_, err := tool.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected Go error so the executor can retry")
	}
}

func TestGetCoordinatesToolReturnsLocateJSON(t *testing.T) {
	tests := []struct {
		name   string
		result grounding.LocateResult
		want   string
	}{
		{"success", grounding.Success(288, 162), `{"status":"success","x":288,"y":162}`},
		{"not found", grounding.NotFound(), `{"status":"not_found"}`},
		{"error", grounding.Failure("parse failed: foo"), `{"status":"error","message":"parse failed: foo"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLocator{result: tt.result}
			result, err := NewGetCoordinatesTool(l).Execute(context.Background(), json.RawMessage(`{"query":"the login button"}`))
			if err != nil {
				t.Fatalf("Execute returned Go error: %v", err)
			}
			if !result.Success() {
				t.Fatalf("locate outcomes are results, got failure %v", result.Error)
			}
			if result.Output != tt.want {
				t.Errorf("got %s, want %s", result.Output, tt.want)
			}
			if l.queries[0] != "the login button" {
				t.Errorf("query not forwarded: %q", l.queries[0])
			}
		})
	}
}

func TestClickTool(t *testing.T) {
	act := &fakeActuator{}
	result, err := NewClickTool(act).Execute(context.Background(), json.RawMessage(`{"x":288,"y":162}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "Clicked successfully at (288, 162)." {
		t.Errorf("unexpected output %q", result.Output)
	}
	if len(act.clicks) != 1 || act.clicks[0] != [2]int{288, 162} {
		t.Errorf("unexpected clicks %v", act.clicks)
	}
}

func TestClickToolFailureIsAResult(t *testing.T) {
	act := &fakeActuator{failure: errors.New("target closed")}
	result, err := NewClickTool(act).Execute(context.Background(), json.RawMessage(`{"x":1,"y":2}`))
	if err != nil {
		t.Fatalf("click failures must not be Go errors: %v", err)
	}
	if result.Success() || !strings.Contains(result.Error.Error(), "target closed") {
		t.Errorf("expected failure result, got %+v", result)
	}
}

func TestWriteTool(t *testing.T) {
	act := &fakeActuator{}
	result, err := NewWriteTool(act).Execute(context.Background(), json.RawMessage(`{"text":"golang","press_enter":true}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "Typed 'golang' successfully." {
		t.Errorf("unexpected output %q", result.Output)
	}
	if act.typed[0] != "golang" || !act.enters[0] {
		t.Errorf("unexpected typing %v %v", act.typed, act.enters)
	}
}

func TestNewBrowserRegistry(t *testing.T) {
	registry, err := NewBrowserRegistry(&fakeDescriber{}, &fakeLocator{}, &fakeActuator{})
	if err != nil {
		t.Fatalf("NewBrowserRegistry failed: %v", err)
	}

	want := []string{DescribeWebpageName, GetCoordinatesName, ClickName, WriteName}
	got := registry.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	defs := registry.Definitions()
	if len(defs) != 4 {
		t.Fatalf("expected 4 definitions, got %d", len(defs))
	}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Errorf("definition %d = %s, want %s", i, def.Name, want[i])
		}
	}
	for _, def := range defs {
		if def.Name != ClickName {
			continue
		}
		required, _ := def.Parameters["required"].([]string)
		if strings.Join(required, ",") != "x,y" {
			t.Errorf("click requires %v", required)
		}
		props := def.Parameters["properties"].(map[string]interface{})
		x := props["x"].(map[string]interface{})
		if x["type"] != "integer" {
			t.Errorf("x type = %v", x["type"])
		}
	}

	if err := registry.Register(NewClickTool(&fakeActuator{})); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
