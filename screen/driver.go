// Package screen captures the display and injects input into it.
//
// Information Hiding:
// - Browser launch, viewport and device scale setup
// - Screenshot encoding
// - Mouse and keyboard event dispatch and settle delays
//
// Coordinates passed to Click are in the interactive resolution reported by
// Size, which for browsers is the CSS viewport and may differ from the pixel
// size of captured images.
package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"time"

	"go.uber.org/zap"
)

// Capture is one screenshot.
type Capture struct {
	PNG    []byte
	Width  int // image pixels
	Height int
}

// Driver is the surface the tools act on.
type Driver interface {
	// Capture returns a PNG screenshot of the visible area.
	Capture(ctx context.Context) (Capture, error)
	// Size returns the interactive resolution clicks are expressed in.
	Size(ctx context.Context) (width, height int, err error)
	// Click presses and releases the primary button at (x, y), then settles.
	Click(ctx context.Context, x, y int) error
	// Type enters text one character at a time, optionally followed by Enter.
	Type(ctx context.Context, text string, pressEnter bool) error
	// Close releases the browser.
	Close() error
}

// Settle holds the pauses that let the page react to input.
type Settle struct {
	AfterClick  time.Duration
	KeyInterval time.Duration
	BeforeEnter time.Duration
	AfterType   time.Duration
}

// DefaultSettle mirrors the pacing of a human operator.
var DefaultSettle = Settle{
	AfterClick:  500 * time.Millisecond,
	KeyInterval: 50 * time.Millisecond,
	BeforeEnter: 200 * time.Millisecond,
	AfterType:   2 * time.Second,
}

// Options configure a driver.
type Options struct {
	StartURL    string
	Headless    bool
	Width       int
	Height      int
	DeviceScale float64
	Settle      Settle
}

func (o Options) withDefaults() Options {
	if o.StartURL == "" {
		o.StartURL = "about:blank"
	}
	if o.Width <= 0 {
		o.Width = 1920
	}
	if o.Height <= 0 {
		o.Height = 1080
	}
	if o.DeviceScale <= 0 {
		o.DeviceScale = 1
	}
	return o
}

// Driver kinds accepted by New.
const (
	KindRod      = "rod"
	KindChromedp = "chromedp"
)

// New launches the driver of the given kind.
func New(ctx context.Context, kind string, opts Options, logger *zap.Logger) (Driver, error) {
	logger = orNop(logger)
	switch kind {
	case KindRod, "":
		return NewRodDriver(ctx, opts, logger)
	case KindChromedp:
		return NewChromedpDriver(ctx, opts, logger)
	default:
		return nil, fmt.Errorf("unknown screen driver: %q", kind)
	}
}

// orNop lets drivers be built without a logger.
func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// typeRunes feeds text to insert one rune at a time with the settle pacing,
// then presses Enter through enter when requested.
func typeRunes(ctx context.Context, text string, pressEnter bool, s Settle, insert func(string) error, enter func() error) error {
	for _, r := range text {
		if err := insert(string(r)); err != nil {
			return fmt.Errorf("type: %w", err)
		}
		if err := sleep(ctx, s.KeyInterval); err != nil {
			return err
		}
	}
	if pressEnter {
		if err := sleep(ctx, s.BeforeEnter); err != nil {
			return err
		}
		if err := enter(); err != nil {
			return fmt.Errorf("press enter: %w", err)
		}
	}
	return sleep(ctx, s.AfterType)
}

func newCapture(data []byte) (Capture, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Capture{}, fmt.Errorf("decode screenshot: %w", err)
	}
	return Capture{PNG: data, Width: cfg.Width, Height: cfg.Height}, nil
}
