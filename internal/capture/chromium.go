package capture

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

// Default capture parameters for the read-only timetable page.
const (
	DefaultWidth      = 1100
	DefaultHeight     = 1500
	DefaultTimeoutSec = 30
)

// ReadySelector is set on the page root once the grid is rendered.
const ReadySelector = `[data-ready="true"]`

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/view?value=...".
	URL string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation. If zero, a sane default
	// (DefaultTimeoutSec) is used.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return o
}

// Capturer renders a page to PNG. The HTTP preview handler depends on this
// interface so tests can swap Chromium out.
type Capturer interface {
	CapturePNG(ctx context.Context, opts Options) ([]byte, error)
}

// Chromium captures with a fresh headless browser per call.
type Chromium struct{}

// CapturePNG launches (or attaches to) a headless Chromium instance via
// chromedp, navigates to opts.URL, waits for ReadySelector to become visible
// and returns a full-page PNG screenshot.
func (Chromium) CapturePNG(parentCtx context.Context, opts Options) ([]byte, error) {
	if opts.URL == "" {
		return nil, errors.New("capture: URL is required")
	}
	opts = opts.withDefaults()

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(200 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, errors.Wrap(err, "capture: chromedp run failed")
	}
	return png, nil
}
