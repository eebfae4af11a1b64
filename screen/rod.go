package screen

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// RodDriver drives a Chrome tab through go-rod.
type RodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	settle   Settle
	logger   *zap.Logger
}

// NewRodDriver launches Chrome, opens opts.StartURL and applies the viewport.
func NewRodDriver(ctx context.Context, opts Options, logger *zap.Logger) (*RodDriver, error) {
	logger = orNop(logger)
	opts = opts.withDefaults()

	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch Chrome: %w", err)
	}
	logger.Info("Chrome launched", zap.String("driver", KindRod), zap.String("cdp", controlURL), zap.Bool("headless", opts.Headless))

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to Chrome: %w", err)
	}

	d := &RodDriver{launcher: l, browser: b, settle: opts.Settle, logger: logger}

	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: opts.StartURL})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open %s: %w", opts.StartURL, err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: opts.DeviceScale,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		logger.Warn("page load wait failed", zap.Error(err))
	}

	// Detach the page from the launch context; calls bind their own.
	d.page = page.Context(context.Background())
	return d, nil
}

// Capture implements Driver.
func (d *RodDriver) Capture(ctx context.Context) (Capture, error) {
	data, err := d.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return Capture{}, fmt.Errorf("screenshot: %w", err)
	}
	return newCapture(data)
}

// Size implements Driver.
func (d *RodDriver) Size(ctx context.Context) (int, int, error) {
	res, err := d.page.Context(ctx).Eval(`() => [window.innerWidth, window.innerHeight]`)
	if err != nil {
		return 0, 0, fmt.Errorf("viewport size: %w", err)
	}
	dims := res.Value.Arr()
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("viewport size: unexpected result %s", res.Value.JSON("", ""))
	}
	return dims[0].Int(), dims[1].Int(), nil
}

// Click implements Driver.
func (d *RodDriver) Click(ctx context.Context, x, y int) error {
	page := d.page.Context(ctx)
	if err := page.Mouse.MoveTo(proto.NewPoint(float64(x), float64(y))); err != nil {
		return fmt.Errorf("move to (%d, %d): %w", x, y, err)
	}
	if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click at (%d, %d): %w", x, y, err)
	}
	d.logger.Debug("clicked", zap.Int("x", x), zap.Int("y", y))
	return sleep(ctx, d.settle.AfterClick)
}

// Type implements Driver.
func (d *RodDriver) Type(ctx context.Context, text string, pressEnter bool) error {
	page := d.page.Context(ctx)
	return typeRunes(ctx, text, pressEnter, d.settle,
		page.InsertText,
		func() error { return page.Keyboard.Press(input.Enter) },
	)
}

// Close implements Driver.
func (d *RodDriver) Close() error {
	err := d.browser.Close()
	d.launcher.Kill()
	return err
}

var _ Driver = (*RodDriver)(nil)
