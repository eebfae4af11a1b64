package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/richinex/sightline/llm"
)

func newTestSqlite(t *testing.T) *SqliteStorage {
	t.Helper()
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestSqliteStorageSaveAndLoad(t *testing.T) {
	storage := newTestSqlite(t)
	ctx := context.Background()

	messages := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: "You drive a browser."},
		{Role: llm.RoleUser, Content: "Open the settings page"},
	}

	if err := storage.Save(ctx, "run-1", messages); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := storage.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded))
	}
	if loaded[1].Content != "Open the settings page" {
		t.Errorf("unexpected content %q", loaded[1].Content)
	}
}

func TestSqliteStorageRoundTripsToolMessages(t *testing.T) {
	storage := newTestSqlite(t)
	ctx := context.Background()

	messages := []llm.ChatMessage{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{
			ID:        "call_1",
			Name:      "get_coordinates_for",
			Arguments: json.RawMessage(`{"query":"the search box"}`),
		}}},
		{Role: llm.RoleTool, Content: `{"status":"success","x":288,"y":162}`, ToolCallID: "call_1", ToolName: "get_coordinates_for"},
	}

	if err := storage.Save(ctx, "run-1", messages); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := storage.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded[0].ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(loaded[0].ToolCalls))
	}
	call := loaded[0].ToolCalls[0]
	if call.ID != "call_1" || call.Name != "get_coordinates_for" {
		t.Errorf("unexpected tool call %+v", call)
	}
	if string(call.Arguments) != `{"query":"the search box"}` {
		t.Errorf("unexpected arguments %s", call.Arguments)
	}
	if loaded[0].ToolCallID != "" {
		t.Errorf("assistant message should have no tool call id, got %q", loaded[0].ToolCallID)
	}
	if !loaded[1].IsToolResult("get_coordinates_for") || loaded[1].ToolCallID != "call_1" {
		t.Errorf("tool result lost its producer: %+v", loaded[1])
	}
}

func TestSqliteStorageDeleteKeepsTrace(t *testing.T) {
	storage := newTestSqlite(t)
	ctx := context.Background()

	if err := storage.RecordRun(ctx, RunRecord{RunID: "run-1", Root: "runs/run-1"}); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if err := storage.Save(ctx, "run-1", []llm.ChatMessage{{Role: llm.RoleUser, Content: "Test"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := storage.Delete(ctx, "run-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	loaded, err := storage.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected no messages after delete, got %d", len(loaded))
	}
	runs, _ := storage.ListRuns(ctx)
	if len(runs) != 1 {
		t.Errorf("deleting a conversation must keep the run, got %d runs", len(runs))
	}
}

func TestSqliteStorageSaveWithoutRun(t *testing.T) {
	storage := newTestSqlite(t)
	ctx := context.Background()

	if err := storage.Save(ctx, "unrecorded", []llm.ChatMessage{{Role: llm.RoleUser, Content: "Test"}}); err != nil {
		t.Fatalf("Save must not depend on a runs row: %v", err)
	}
	loaded, _ := storage.Load(ctx, "unrecorded")
	if len(loaded) != 1 {
		t.Errorf("expected 1 message, got %d", len(loaded))
	}
}

func TestSqliteStorageOverwriteConversation(t *testing.T) {
	storage := newTestSqlite(t)
	ctx := context.Background()

	first := []llm.ChatMessage{{Role: llm.RoleUser, Content: "First"}}
	second := []llm.ChatMessage{
		{Role: llm.RoleUser, Content: "Second"},
		{Role: llm.RoleAssistant, Content: "Response"},
	}

	if err := storage.Save(ctx, "run-1", first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := storage.Save(ctx, "run-1", second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := storage.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Content != "Second" {
		t.Errorf("expected overwritten history, got %+v", loaded)
	}
}

func TestOpenSqliteCreatesDirectoryAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.db")
	ctx := context.Background()

	storage, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	if err := storage.RecordRun(ctx, RunRecord{RunID: "run-20250101_120000", Root: "runs/run-20250101_120000"}); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	storage.Close()

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	runs, err := reopened.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-20250101_120000" {
		t.Errorf("expected persisted run, got %+v", runs)
	}
}
