package grounding

import (
	"context"
	"fmt"

	"github.com/richinex/sightline/storage"
	"go.uber.org/zap"
)

// LocateRecorder stores locate outcomes.
type LocateRecorder interface {
	RecordLocate(ctx context.Context, rec storage.LocateRecord) error
}

// Locator turns a target description into a screen coordinate.
type Locator struct {
	frames   *Frames
	screen   Screen
	vision   Vision
	recorder LocateRecorder
	logger   *zap.Logger
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithLocateRecorder records every outcome to r.
func WithLocateRecorder(r LocateRecorder) LocatorOption {
	return func(l *Locator) { l.recorder = r }
}

// NewLocator creates a locator.
func NewLocator(frames *Frames, scr Screen, vision Vision, logger *zap.Logger, opts ...LocatorOption) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Locator{frames: frames, screen: scr, vision: vision, logger: logger.Named("locate")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate finds query on the current frame. Every failure is reported in the
// result; Locate never returns a Go error.
func (l *Locator) Locate(ctx context.Context, query string) LocateResult {
	frame, err := l.frames.Current(ctx)
	if err != nil {
		return l.finish(ctx, -1, query, Failure(fmt.Sprintf("screenshot failed: %v", err)))
	}
	return l.finish(ctx, frame.Index, query, l.locate(ctx, frame.Index, query))
}

func (l *Locator) locate(ctx context.Context, idx int, query string) LocateResult {
	img, err := l.frames.Payload(idx)
	if err != nil {
		return Failure(fmt.Sprintf("frame unavailable: %v", err))
	}

	raw, err := l.vision.Look(ctx, img, LocatePrompt(query))
	if err != nil {
		return Failure(fmt.Sprintf("vision model failed: %v", err))
	}

	parsed := ParseBox(raw)
	switch parsed.Kind {
	case BoxEmpty:
		return Failure("empty output")
	case BoxMalformed:
		return Failure("parse failed: " + parsed.Raw)
	case BoxSentinel:
		return NotFound()
	}

	// Size first so a failure leaves no annotated artifact behind.
	width, height, err := l.screen.Size(ctx)
	if err != nil {
		return Failure(fmt.Sprintf("screen size unavailable: %v", err))
	}

	if err := l.annotate(ctx, idx, parsed.Box); err != nil {
		return Failure(fmt.Sprintf("annotate failed: %v", err))
	}

	cx, cy := parsed.Box.Center()
	x, y := ToScreen(cx, cy, width, height)
	return Success(x, y)
}

// annotate writes the verification image for frame idx. A coordinate is only
// reported once its annotated frame is on disk.
func (l *Locator) annotate(ctx context.Context, idx int, b Box) error {
	raw, err := l.frames.Raw(idx)
	if err != nil {
		return err
	}
	out, err := Annotate(raw, b, fmt.Sprintf("#%d", idx))
	if err != nil {
		return err
	}
	_, err = l.frames.Store().SaveAnnotated(ctx, idx, out)
	return err
}

func (l *Locator) finish(ctx context.Context, idx int, query string, res LocateResult) LocateResult {
	fields := []zap.Field{
		zap.Int("index", idx),
		zap.String("query", query),
		zap.String("status", string(res.Status)),
	}
	switch res.Status {
	case StatusSuccess:
		l.logger.Info("located", append(fields, zap.Int("x", res.X), zap.Int("y", res.Y))...)
	case StatusNotFound:
		l.logger.Info("target not found", fields...)
	default:
		l.logger.Warn("locate failed", append(fields, zap.String("message", res.Message))...)
	}

	if l.recorder != nil {
		rec := storage.LocateRecord{
			RunID:   l.frames.Store().Run().ID,
			Index:   idx,
			Query:   query,
			Status:  string(res.Status),
			X:       res.X,
			Y:       res.Y,
			Message: res.Message,
		}
		if err := l.recorder.RecordLocate(ctx, rec); err != nil {
			l.logger.Warn("trace index write failed", zap.Error(err))
		}
	}
	return res
}
