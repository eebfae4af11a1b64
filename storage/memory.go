// Package storage provides in-memory conversation storage and trace index.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and runs started without an index database

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/richinex/sightline/llm"
	"github.com/richinex/sightline/trace"
)

// InMemoryStorage implements ConversationStorage and TraceIndex using maps.
// Data is lost when process terminates.
type InMemoryStorage struct {
	mu        sync.RWMutex
	conversations map[string][]llm.ChatMessage
	runs          map[string]RunRecord
	artifacts     map[string][]ArtifactRecord
	locates       map[string][]LocateRecord
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		conversations: make(map[string][]llm.ChatMessage),
		runs:          make(map[string]RunRecord),
		artifacts:     make(map[string][]ArtifactRecord),
		locates:       make(map[string][]LocateRecord),
	}
}

// Save replaces the conversation stored for runID with a copy of history.
func (s *InMemoryStorage) Save(ctx context.Context, runID string, history []llm.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[runID] = append([]llm.ChatMessage(nil), history...)
	return nil
}

// Load returns a copy of the conversation stored for runID, or an empty
// slice.
func (s *InMemoryStorage) Load(ctx context.Context, runID string) ([]llm.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]llm.ChatMessage{}, s.conversations[runID]...), nil
}

// Delete removes the conversation stored for runID.
func (s *InMemoryStorage) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, runID)
	return nil
}

// RecordRun inserts or replaces a run.
func (s *InMemoryStorage) RecordRun(ctx context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.CreatedAt.IsZero() {
		if prev, ok := s.runs[run.RunID]; ok {
			run.CreatedAt = prev.CreatedAt
		} else {
			run.CreatedAt = time.Now()
		}
	}
	s.runs[run.RunID] = run
	return nil
}

// RecordArtifact implements trace.Recorder. A later write of the same
// index and kind replaces the earlier one.
func (s *InMemoryStorage) RecordArtifact(ctx context.Context, runID string, index int, kind trace.ArtifactKind, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := ArtifactRecord{RunID: runID, Index: index, Kind: kind, Path: path, CreatedAt: time.Now()}
	list := s.artifacts[runID]
	for i := range list {
		if list[i].Index == index && list[i].Kind == kind {
			list[i] = rec
			return nil
		}
	}
	s.artifacts[runID] = append(list, rec)
	return nil
}

// RecordLocate appends a locate outcome.
func (s *InMemoryStorage) RecordLocate(ctx context.Context, rec LocateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.Status != "success" {
		rec.X, rec.Y = 0, 0
	}
	s.locates[rec.RunID] = append(s.locates[rec.RunID], rec)
	return nil
}

// ListRuns returns runs newest first.
func (s *InMemoryStorage) ListRuns(ctx context.Context) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		run.Frames = 0
		for _, a := range s.artifacts[run.RunID] {
			if a.Kind == trace.KindScreenshot {
				run.Frames++
			}
		}
		run.Locates = len(s.locates[run.RunID])
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})
	return runs, nil
}

// Artifacts returns the files of a run ordered by index.
func (s *InMemoryStorage) Artifacts(ctx context.Context, runID string) ([]ArtifactRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ArtifactRecord, len(s.artifacts[runID]))
	copy(out, s.artifacts[runID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// Locates returns the locate outcomes of a run in the order they happened.
func (s *InMemoryStorage) Locates(ctx context.Context, runID string) ([]LocateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]LocateRecord, len(s.locates[runID]))
	copy(out, s.locates[runID])
	return out, nil
}

var (
	_ ConversationStorage = (*InMemoryStorage)(nil)
	_ TraceIndex          = (*InMemoryStorage)(nil)
)
