package screen

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

// ChromedpDriver drives a Chrome tab through chromedp and raw CDP input events.
type ChromedpDriver struct {
	ctx         context.Context // tab context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	settle      Settle
	logger      *zap.Logger
}

// NewChromedpDriver launches Chrome, opens opts.StartURL and applies the viewport.
func NewChromedpDriver(ctx context.Context, opts Options, logger *zap.Logger) (*ChromedpDriver, error) {
	logger = orNop(logger)
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	d := &ChromedpDriver{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		settle:      opts.Settle,
		logger:      logger,
	}

	err := d.run(ctx,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height), chromedp.EmulateScale(opts.DeviceScale)),
		chromedp.Navigate(opts.StartURL),
	)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("start Chrome: %w", err)
	}
	logger.Info("Chrome launched", zap.String("driver", KindChromedp), zap.Bool("headless", opts.Headless))
	return d, nil
}

// run executes actions on the tab, aborting when either ctx or the tab ends.
func (d *ChromedpDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Capture implements Driver.
func (d *ChromedpDriver) Capture(ctx context.Context) (Capture, error) {
	var data []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&data)); err != nil {
		return Capture{}, fmt.Errorf("screenshot: %w", err)
	}
	return newCapture(data)
}

// Size implements Driver.
func (d *ChromedpDriver) Size(ctx context.Context) (int, int, error) {
	var dims []int
	if err := d.run(ctx, chromedp.Evaluate(`[window.innerWidth, window.innerHeight]`, &dims)); err != nil {
		return 0, 0, fmt.Errorf("viewport size: %w", err)
	}
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("viewport size: unexpected result %v", dims)
	}
	return dims[0], dims[1], nil
}

// Click implements Driver.
func (d *ChromedpDriver) Click(ctx context.Context, x, y int) error {
	fx, fy := float64(x), float64(y)
	err := d.run(ctx,
		input.DispatchMouseEvent(input.MouseMoved, fx, fy),
		input.DispatchMouseEvent(input.MousePressed, fx, fy).WithButton(input.Left).WithClickCount(1),
		input.DispatchMouseEvent(input.MouseReleased, fx, fy).WithButton(input.Left).WithClickCount(1),
	)
	if err != nil {
		return fmt.Errorf("click at (%d, %d): %w", x, y, err)
	}
	d.logger.Debug("clicked", zap.Int("x", x), zap.Int("y", y))
	return sleep(ctx, d.settle.AfterClick)
}

// Type implements Driver.
func (d *ChromedpDriver) Type(ctx context.Context, text string, pressEnter bool) error {
	return typeRunes(ctx, text, pressEnter, d.settle,
		func(s string) error { return d.run(ctx, input.InsertText(s)) },
		func() error { return d.run(ctx, chromedp.KeyEvent(kb.Enter)) },
	)
}

// Close implements Driver.
func (d *ChromedpDriver) Close() error {
	d.cancelTab()
	d.cancelAlloc()
	return nil
}

var _ Driver = (*ChromedpDriver)(nil)
