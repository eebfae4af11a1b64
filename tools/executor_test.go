package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type scriptedTool struct {
	calls   int
	errs    []error
	result  ToolResult
	invalid bool
}

func (s *scriptedTool) Metadata() ToolMetadata { return ToolMetadata{Name: "scripted"} }

func (s *scriptedTool) Validate(args json.RawMessage) error {
	if s.invalid {
		return errors.New("bad args")
	}
	return nil
}

func (s *scriptedTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return ToolResult{}, err
	}
	return s.result, nil
}

func newTestExecutor(attempts uint32) (*Executor, *[]time.Duration) {
	var waits []time.Duration
	e := NewExecutor(ToolConfig{MaxRetries: attempts, Timeout: time.Second})
	e.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return e, &waits
}

func TestExecutorRetriesGoErrors(t *testing.T) {
	e, waits := newTestExecutor(3)
	tool := &scriptedTool{
		errs:   []error{errors.New("connection reset"), errors.New("connection reset")},
		result: SuccessResult("ok"),
	}

	result, err := e.Execute(context.Background(), tool, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "ok" || tool.calls != 3 {
		t.Errorf("expected success on third call, got %+v after %d calls", result, tool.calls)
	}
	if len(*waits) != 2 || (*waits)[0] != 200*time.Millisecond || (*waits)[1] != 400*time.Millisecond {
		t.Errorf("unexpected backoff %v", *waits)
	}
}

func TestExecutorDoesNotRetryFailureResults(t *testing.T) {
	e, _ := newTestExecutor(3)
	tool := &scriptedTool{result: FailureResultf("click failed")}

	result, err := e.Execute(context.Background(), tool, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success() || tool.calls != 1 {
		t.Errorf("failure results run once, got %d calls", tool.calls)
	}
}

func TestExecutorGivesUpAfterMaxAttempts(t *testing.T) {
	e, _ := newTestExecutor(2)
	boom := errors.New("vision model failed")
	tool := &scriptedTool{errs: []error{boom, boom, boom}}

	result, err := e.Execute(context.Background(), tool, nil)
	if err != nil {
		t.Fatalf("exhaustion is a result, not an error: %v", err)
	}
	if result.Success() || !strings.Contains(result.Error.Error(), "failed after 2 attempts") {
		t.Errorf("unexpected result %+v", result)
	}
	if tool.calls != 2 {
		t.Errorf("expected 2 calls, got %d", tool.calls)
	}
}

func TestExecutorValidatesOnce(t *testing.T) {
	e, _ := newTestExecutor(3)
	tool := &scriptedTool{invalid: true}

	result, err := e.Execute(context.Background(), tool, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success() || !strings.Contains(result.Error.Error(), "validation failed") {
		t.Errorf("unexpected result %+v", result)
	}
	if tool.calls != 0 {
		t.Errorf("invalid arguments must not execute, got %d calls", tool.calls)
	}
}

func TestExecutorStopsOnCancellation(t *testing.T) {
	e, _ := newTestExecutor(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tool := &scriptedTool{errs: []error{context.Canceled}}

	_, err := e.Execute(ctx, tool, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if tool.calls != 1 {
		t.Errorf("expected 1 call, got %d", tool.calls)
	}
}

func TestToolResultContent(t *testing.T) {
	if got := SuccessResult("done").Content(); got != "done" {
		t.Errorf("got %q", got)
	}
	if got := FailureResultf("x failed").Content(); got != "Error: x failed" {
		t.Errorf("got %q", got)
	}
}
