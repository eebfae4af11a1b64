package storage

import (
	"context"
	"testing"
	"time"

	"github.com/richinex/sightline/trace"
)

func traceIndexBackends(t *testing.T) map[string]TraceIndex {
	return map[string]TraceIndex{
		"sqlite": newTestSqlite(t),
		"memory": NewInMemoryStorage(),
	}
}

func TestTraceIndexRunsNewestFirst(t *testing.T) {
	for name, idx := range traceIndexBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

			older := RunRecord{RunID: "run-20250301_090000", Root: "runs/a", Prompt: "log in", CreatedAt: base}
			newer := RunRecord{RunID: "run-20250301_091500", Root: "runs/b", Prompt: "search", CreatedAt: base.Add(15 * time.Minute)}
			for _, r := range []RunRecord{older, newer} {
				if err := idx.RecordRun(ctx, r); err != nil {
					t.Fatalf("RecordRun failed: %v", err)
				}
			}

			runs, err := idx.ListRuns(ctx)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if len(runs) != 2 {
				t.Fatalf("expected 2 runs, got %d", len(runs))
			}
			if runs[0].RunID != newer.RunID || runs[1].RunID != older.RunID {
				t.Errorf("expected newest first, got %s then %s", runs[0].RunID, runs[1].RunID)
			}
			if runs[1].Prompt != "log in" {
				t.Errorf("prompt not kept: %q", runs[1].Prompt)
			}
		})
	}
}

func TestTraceIndexCountsFramesAndLocates(t *testing.T) {
	for name, idx := range traceIndexBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			runID := "run-20250301_090000"
			if err := idx.RecordRun(ctx, RunRecord{RunID: runID, Root: "runs/" + runID}); err != nil {
				t.Fatalf("RecordRun failed: %v", err)
			}

			writes := []struct {
				index int
				kind  trace.ArtifactKind
				path  string
			}{
				{-1, trace.KindPrompt, "prompt.txt"},
				{1, trace.KindScreenshot, "screenshot_1.png"},
				{0, trace.KindScreenshot, "screenshot_0.png"},
				{0, trace.KindDescription, "screenshot_0.txt"},
				{1, trace.KindAnnotated, "screenshot_1_annotated.png"},
				// rewriting the same artifact replaces it
				{1, trace.KindAnnotated, "screenshot_1_annotated.png"},
			}
			for _, w := range writes {
				if err := idx.RecordArtifact(ctx, runID, w.index, w.kind, w.path); err != nil {
					t.Fatalf("RecordArtifact failed: %v", err)
				}
			}

			locates := []LocateRecord{
				{RunID: runID, Index: 0, Query: "the login button", Status: "not_found"},
				{RunID: runID, Index: 1, Query: "the login button", Status: "success", X: 288, Y: 162},
				{RunID: runID, Index: 1, Query: "the avatar", Status: "error", Message: "parse failed: foo"},
			}
			for _, l := range locates {
				if err := idx.RecordLocate(ctx, l); err != nil {
					t.Fatalf("RecordLocate failed: %v", err)
				}
			}

			runs, err := idx.ListRuns(ctx)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if runs[0].Frames != 2 || runs[0].Locates != 3 {
				t.Errorf("expected 2 frames and 3 locates, got %d and %d", runs[0].Frames, runs[0].Locates)
			}

			artifacts, err := idx.Artifacts(ctx, runID)
			if err != nil {
				t.Fatalf("Artifacts failed: %v", err)
			}
			if len(artifacts) != 5 {
				t.Fatalf("expected 5 artifacts, got %d", len(artifacts))
			}
			for i := 1; i < len(artifacts); i++ {
				if artifacts[i].Index < artifacts[i-1].Index {
					t.Errorf("artifacts not ordered by index: %+v", artifacts)
				}
			}
			if artifacts[0].Kind != trace.KindPrompt {
				t.Errorf("expected prompt first, got %s", artifacts[0].Kind)
			}

			got, err := idx.Locates(ctx, runID)
			if err != nil {
				t.Fatalf("Locates failed: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("expected 3 locates, got %d", len(got))
			}
			if got[1].X != 288 || got[1].Y != 162 {
				t.Errorf("success lost its point: %+v", got[1])
			}
			if got[2].Message != "parse failed: foo" {
				t.Errorf("error lost its message: %+v", got[2])
			}
			if got[0].Status != "not_found" || got[0].Message != "" {
				t.Errorf("unexpected not_found record: %+v", got[0])
			}
		})
	}
}

func TestTraceIndexUnknownRunIsEmpty(t *testing.T) {
	for name, idx := range traceIndexBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			artifacts, err := idx.Artifacts(ctx, "missing")
			if err != nil {
				t.Fatalf("Artifacts failed: %v", err)
			}
			locates, err := idx.Locates(ctx, "missing")
			if err != nil {
				t.Fatalf("Locates failed: %v", err)
			}
			if len(artifacts) != 0 || len(locates) != 0 {
				t.Errorf("expected nothing for an unknown run")
			}
		})
	}
}
