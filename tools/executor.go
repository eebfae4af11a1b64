// Tool executor: one validation, a timeout per attempt, and exponential
// backoff between attempts that ended in a Go error.
//
// Information Hiding:
// - Backoff schedule
// - Which errors count as transient

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Executor provides tool execution with retry and timeout support.
type Executor struct {
	config ToolConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates a new tool executor with the given configuration.
func NewExecutor(config ToolConfig) *Executor {
	return &Executor{config: config, sleep: sleepCtx}
}

// Execute validates the arguments once, then runs the tool. Only Go errors
// are retried; a ToolResult, failed or not, is returned as is.
func (e *Executor) Execute(ctx context.Context, tool Tool, args json.RawMessage) (ToolResult, error) {
	if err := tool.Validate(args); err != nil {
		return FailureResult(fmt.Errorf("validation failed: %w", err)), nil
	}

	var lastErr error
	toolName := tool.Metadata().Name
	maxRetries := e.config.Retries()

	for attempt := uint32(0); attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, e.calculateBackoff(attempt)); err != nil {
				return ToolResult{}, err
			}
		}

		result, err := e.attempt(ctx, tool, args)
		if err == nil {
			return result, nil
		}
		if !e.shouldRetry(ctx, err) {
			return ToolResult{}, err
		}
		lastErr = err
	}

	errMsg := "unknown error"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	return FailureResultf("tool '%s' failed after %d attempts: %s", toolName, maxRetries, errMsg), nil
}

func (e *Executor) attempt(ctx context.Context, tool Tool, args json.RawMessage) (ToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.CallTimeout())
	defer cancel()
	return tool.Execute(ctx, args)
}

// calculateBackoff returns the backoff duration for the given attempt.
func (e *Executor) calculateBackoff(attempt uint32) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 5 * time.Second
	)

	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// shouldRetry reports whether err is worth another attempt. Cancellation of
// the run itself is not; a per-call timeout is.
func (e *Executor) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
