package storage

import (
	"context"
	"time"

	"github.com/richinex/sightline/trace"
)

// RunRecord summarizes one run.
type RunRecord struct {
	RunID     string
	Root      string
	Prompt    string
	CreatedAt time.Time
	Frames    int // screenshots recorded
	Locates   int // locate outcomes recorded
}

// ArtifactRecord is one file written into a run directory.
type ArtifactRecord struct {
	RunID     string
	Index     int // -1 for run-level files such as the prompt
	Kind      trace.ArtifactKind
	Path      string
	CreatedAt time.Time
}

// LocateRecord is one element lookup and its outcome.
type LocateRecord struct {
	RunID     string
	Index     int
	Query     string
	Status    string
	X, Y      int
	Message   string
	CreatedAt time.Time
}

// TraceIndex records runs, their artifacts and locate outcomes so past runs
// can be listed and inspected without walking the run directories.
type TraceIndex interface {
	trace.Recorder

	RecordRun(ctx context.Context, run RunRecord) error
	RecordLocate(ctx context.Context, rec LocateRecord) error

	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]RunRecord, error)
	// Artifacts returns the files of a run ordered by index.
	Artifacts(ctx context.Context, runID string) ([]ArtifactRecord, error)
	// Locates returns the locate outcomes of a run in the order they happened.
	Locates(ctx context.Context, runID string) ([]LocateRecord, error)
}
