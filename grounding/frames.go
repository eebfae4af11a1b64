package grounding

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/richinex/sightline/llm"
	"github.com/richinex/sightline/screen"
	"github.com/richinex/sightline/trace"
	"go.uber.org/zap"
)

// Vision answers a prompt about one image with raw text.
type Vision interface {
	Look(ctx context.Context, img llm.Image, prompt string) (string, error)
}

// Capturer takes screenshots.
type Capturer interface {
	Capture(ctx context.Context) (screen.Capture, error)
}

// Screen is what the locator needs from a driver.
type Screen interface {
	Capturer
	Size(ctx context.Context) (width, height int, err error)
}

// FramesOptions tune how frames are prepared for the vision model.
type FramesOptions struct {
	MaxSide   int // longest side sent to the model, 0 keeps the original
	CacheSize int // prepared payloads kept in memory
}

// DefaultFramesOptions fit the input limits of current vision models.
var DefaultFramesOptions = FramesOptions{MaxSide: 1568, CacheSize: 16}

// Frames decides which frame a query runs against and prepares model payloads.
type Frames struct {
	store    *trace.Store
	capturer Capturer
	maxSide  int
	cache    *lru.Cache[int, llm.Image]
	logger   *zap.Logger
}

// NewFrames wires a frame source over store.
func NewFrames(store *trace.Store, capturer Capturer, opts FramesOptions, logger *zap.Logger) (*Frames, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultFramesOptions.CacheSize
	}
	cache, err := lru.New[int, llm.Image](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("frame cache: %w", err)
	}
	return &Frames{
		store:    store,
		capturer: capturer,
		maxSide:  opts.MaxSide,
		cache:    cache,
		logger:   logger.Named("frames"),
	}, nil
}

// Store returns the trace store frames are written to.
func (f *Frames) Store() *trace.Store {
	return f.store
}

// CaptureNew takes a screenshot and saves it under a new index.
func (f *Frames) CaptureNew(ctx context.Context) (trace.Frame, error) {
	c, err := f.capturer.Capture(ctx)
	if err != nil {
		return trace.Frame{}, fmt.Errorf("capture: %w", err)
	}
	return f.store.SaveFrame(ctx, c.PNG)
}

// Current returns the most recently allocated frame when its raw image is on
// disk, and otherwise captures a fresh one. A frame whose write failed is
// never replaced by an older one.
func (f *Frames) Current(ctx context.Context) (trace.Frame, error) {
	if idx, ok := f.store.Run().Current(); ok {
		if f.store.HasFrame(idx) {
			return trace.Frame{Index: idx, Path: f.store.Run().ScreenshotPath(idx)}, nil
		}
		f.logger.Warn("current frame missing on disk, capturing a new one", zap.Int("index", idx))
	}
	return f.CaptureNew(ctx)
}

// Raw returns the stored bytes of frame idx.
func (f *Frames) Raw(idx int) ([]byte, error) {
	return f.store.LoadFrame(idx)
}

// Payload returns frame idx downscaled to the configured max side.
// Normalized coordinates do not depend on resolution, so scaling is safe.
func (f *Frames) Payload(idx int) (llm.Image, error) {
	if img, ok := f.cache.Get(idx); ok {
		return img, nil
	}

	raw, err := f.store.LoadFrame(idx)
	if err != nil {
		return llm.Image{}, err
	}
	payload, err := fitPNG(raw, f.maxSide)
	if err != nil {
		return llm.Image{}, err
	}

	img := llm.PNGImage(payload)
	f.cache.Add(idx, img)
	return img, nil
}

func fitPNG(raw []byte, maxSide int) ([]byte, error) {
	if maxSide <= 0 {
		return raw, nil
	}
	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	b := src.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return raw, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(src, maxSide, maxSide, imaging.Lanczos), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
