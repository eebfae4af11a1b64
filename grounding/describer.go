package grounding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Report is a scene report and the frame it describes.
type Report struct {
	Index int
	Text  string
}

// Describer turns a fresh frame into a UI STATE REPORT.
type Describer struct {
	frames *Frames
	vision Vision
	logger *zap.Logger
}

// NewDescriber creates a describer.
func NewDescriber(frames *Frames, vision Vision, logger *zap.Logger) *Describer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Describer{frames: frames, vision: vision, logger: logger.Named("describe")}
}

// Describe captures a new frame, asks the vision model for a report guided
// by intention and stores both. The report is returned trimmed and
// otherwise verbatim.
func (d *Describer) Describe(ctx context.Context, intention string) (Report, error) {
	if strings.TrimSpace(intention) == "" {
		intention = DefaultIntention
	}

	frame, err := d.frames.CaptureNew(ctx)
	if err != nil {
		return Report{}, err
	}
	img, err := d.frames.Payload(frame.Index)
	if err != nil {
		return Report{}, err
	}

	raw, err := d.vision.Look(ctx, img, DescribePrompt(intention))
	if err != nil {
		return Report{}, fmt.Errorf("vision model failed on frame %d: %w", frame.Index, err)
	}
	text := strings.TrimSpace(raw)

	if err := d.frames.Store().SaveDescription(ctx, frame.Index, text); err != nil {
		d.logger.Warn("report not persisted", zap.Int("index", frame.Index), zap.Error(err))
	}
	d.logger.Info("scene described",
		zap.Int("index", frame.Index),
		zap.String("intention", intention),
		zap.Int("chars", len(text)))

	return Report{Index: frame.Index, Text: text}, nil
}
