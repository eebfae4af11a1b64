package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/richinex/sightline/llm"
)

func plannerHistory() []llm.ChatMessage {
	return []llm.ChatMessage{
		llm.SystemMessage("You drive a browser."),
		llm.UserMessage("Search for accommodation in Paris"),
		llm.AssistantToolCallMessage("", []llm.ToolCall{{
			ID:        "call_1_0",
			Name:      "describe_webpage",
			Arguments: json.RawMessage(`{"intention":"find the search box"}`),
		}}),
		llm.ToolResultMessage("call_1_0", "describe_webpage", "UI STATE REPORT\nBLOCKERS: none"),
	}
}

func TestInMemoryStorageRoundTrip(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	if err := s.Save(ctx, "run-1", plannerHistory()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := s.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != 4 {
		t.Fatalf("got %d messages, want 4", len(loaded))
	}
	if calls := loaded[2].ToolCalls; len(calls) != 1 || calls[0].Name != "describe_webpage" {
		t.Errorf("tool calls = %+v", calls)
	}
	if !loaded[3].IsToolResult("describe_webpage") || loaded[3].ToolCallID != "call_1_0" {
		t.Errorf("tool result = %+v", loaded[3])
	}
}

func TestInMemoryStorageSaveReplaces(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	_ = s.Save(ctx, "run-1", plannerHistory())
	_ = s.Save(ctx, "run-1", plannerHistory()[:2])

	loaded, _ := s.Load(ctx, "run-1")
	if len(loaded) != 2 {
		t.Errorf("got %d messages, want the second save only", len(loaded))
	}
}

func TestInMemoryStorageLoadUnknownRun(t *testing.T) {
	loaded, err := NewInMemoryStorage().Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil || len(loaded) != 0 {
		t.Errorf("want an empty, non-nil slice, got %#v", loaded)
	}
}

func TestInMemoryStorageDelete(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	_ = s.Save(ctx, "run-1", plannerHistory())
	_ = s.Save(ctx, "run-2", plannerHistory()[:1])

	if err := s.Delete(ctx, "run-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if loaded, _ := s.Load(ctx, "run-1"); len(loaded) != 0 {
		t.Errorf("run-1 still has %d messages", len(loaded))
	}
	if other, _ := s.Load(ctx, "run-2"); len(other) != 1 {
		t.Errorf("run-2 has %d messages, want 1", len(other))
	}
}

func TestInMemoryStorageCopies(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	history := plannerHistory()
	_ = s.Save(ctx, "run-1", history)
	history[1].Content = "changed after save"

	loaded, _ := s.Load(ctx, "run-1")
	if loaded[1].Content != "Search for accommodation in Paris" {
		t.Errorf("Save kept a reference to the caller's slice: %q", loaded[1].Content)
	}

	loaded[1].Content = "changed after load"
	again, _ := s.Load(ctx, "run-1")
	if again[1].Content != "Search for accommodation in Paris" {
		t.Errorf("Load handed out the stored slice: %q", again[1].Content)
	}
}
