package trace

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ArtifactKind names a file written into a run directory.
type ArtifactKind string

const (
	KindScreenshot  ArtifactKind = "screenshot"
	KindDescription ArtifactKind = "description"
	KindAnnotated   ArtifactKind = "annotated"
	KindPrompt      ArtifactKind = "prompt"
)

// Recorder is told about every artifact the store writes. Recorder errors
// are logged and never fail the write.
type Recorder interface {
	RecordArtifact(ctx context.Context, runID string, index int, kind ArtifactKind, path string) error
}

// Frame identifies one saved screenshot.
type Frame struct {
	Index int
	Path  string
}

// Store writes run artifacts to disk.
type Store struct {
	run      *RunContext
	recorder Recorder
	logger   *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRecorder reports written artifacts to r.
func WithRecorder(r Recorder) StoreOption {
	return func(s *Store) { s.recorder = r }
}

// NewStore creates a store over run.
func NewStore(run *RunContext, logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{run: run, logger: logger.Named("trace")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run returns the run this store writes into.
func (s *Store) Run() *RunContext {
	return s.run
}

// SaveFrame stores png under a freshly allocated index, which becomes current
// even when the write fails.
func (s *Store) SaveFrame(ctx context.Context, png []byte) (Frame, error) {
	idx := s.run.allocate()
	path := s.run.ScreenshotPath(idx)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return Frame{}, fmt.Errorf("save frame %d: %w", idx, err)
	}
	s.record(ctx, idx, KindScreenshot, path)
	s.logger.Debug("frame saved", zap.Int("index", idx), zap.String("path", path))
	return Frame{Index: idx, Path: path}, nil
}

// SaveDescription writes the scene report for frame idx and marks it described.
func (s *Store) SaveDescription(ctx context.Context, idx int, report string) error {
	path := s.run.DescriptionPath(idx)
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return fmt.Errorf("save description %d: %w", idx, err)
	}
	s.run.markDescribed(idx)
	s.record(ctx, idx, KindDescription, path)
	return nil
}

// SaveAnnotated writes the annotated copy of frame idx.
func (s *Store) SaveAnnotated(ctx context.Context, idx int, png []byte) (string, error) {
	path := s.run.AnnotatedPath(idx)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("save annotated %d: %w", idx, err)
	}
	s.record(ctx, idx, KindAnnotated, path)
	return path, nil
}

// SavePrompt writes the task prompt.
func (s *Store) SavePrompt(ctx context.Context, prompt string) error {
	path := s.run.PromptPath()
	if err := os.WriteFile(path, []byte(prompt), 0o644); err != nil {
		return fmt.Errorf("save prompt: %w", err)
	}
	s.record(ctx, -1, KindPrompt, path)
	return nil
}

// LoadFrame reads the raw image of frame idx.
func (s *Store) LoadFrame(idx int) ([]byte, error) {
	data, err := os.ReadFile(s.run.ScreenshotPath(idx))
	if err != nil {
		return nil, fmt.Errorf("load frame %d: %w", idx, err)
	}
	return data, nil
}

// HasFrame reports whether the raw image of frame idx exists on disk.
func (s *Store) HasFrame(idx int) bool {
	info, err := os.Stat(s.run.ScreenshotPath(idx))
	return err == nil && info.Mode().IsRegular()
}

func (s *Store) record(ctx context.Context, idx int, kind ArtifactKind, path string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordArtifact(ctx, s.run.ID, idx, kind, path); err != nil {
		s.logger.Warn("trace index write failed",
			zap.String("kind", string(kind)),
			zap.Int("index", idx),
			zap.Error(err))
	}
}
