package browser

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/nlmcp/nlmcp/internal/config"
	"github.com/nlmcp/nlmcp/internal/devlog"
)

// userAgent presented by the fallback driver. Matches a current stable Chrome
// so the UA string does not advertise a headless build.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// maskWebdriverScript runs before any page script and hides the usual
// automation tell.
const maskWebdriverScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// chromedpOpTimeout bounds driver calls that carry no explicit timeout.
const chromedpOpTimeout = 10 * time.Second

// chromedpDriver drives a DevTools exec allocator directly. Fallback path:
// no system-Chrome discovery and no playwright node driver required.
type chromedpDriver struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func launchDevTools(cfg *config.Config) (Driver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(cfg.Auth.ProfileDir),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if cfg.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecutablePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	d := &chromedpDriver{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}

	// First Run starts the browser; the init script must be registered before
	// any navigation so every document sees the masked navigator.
	err := d.run(context.Background(), cfg.PageLoadTimeout(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(maskWebdriverScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		d.cancel()
		d.allocCancel()
		return nil, fmt.Errorf("failed to start devtools browser: %w", err)
	}

	devlog.Printf("[Browser] devtools allocator started (headless=%v)", cfg.Headless)
	return d, nil
}

// run executes actions against the browser target, bounded by the caller
// context's deadline and cancellation.
func (d *chromedpDriver) run(ctx context.Context, fallback time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := opContext(d.ctx, ctx, fallback)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

// opContext derives an operation context from the browser target context.
// The caller context cannot be the parent (the target lives on d.ctx), so its
// deadline is clamped in and its cancellation is forwarded explicitly.
func opContext(parent, caller context.Context, fallback time.Duration) (context.Context, context.CancelFunc) {
	timeout := fallback
	if dl, ok := caller.Deadline(); ok {
		if remaining := time.Until(dl); remaining < timeout {
			timeout = remaining
		}
	}
	tctx, cancel := context.WithTimeout(parent, timeout)
	stop := context.AfterFunc(caller, cancel)
	return tctx, func() {
		stop()
		cancel()
	}
}

func (d *chromedpDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := d.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (d *chromedpDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, chromedpOpTimeout, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (d *chromedpDriver) WaitReady(ctx context.Context, timeout time.Duration) error {
	if err := d.run(ctx, timeout, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for document body: %w", err)
	}
	return nil
}

func (d *chromedpDriver) Fill(ctx context.Context, selector, text string, timeout time.Duration) error {
	return d.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (d *chromedpDriver) Press(ctx context.Context, selector, key string) error {
	seq := key
	if key == "Enter" {
		seq = "\r"
	}
	return d.run(ctx, chromedpOpTimeout, chromedp.SendKeys(selector, seq, chromedp.ByQuery))
}

func (d *chromedpDriver) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return d.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

func (d *chromedpDriver) TextContents(ctx context.Context, selector string) ([]string, error) {
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map(el => el.innerText || "")`,
		strconv.Quote(selector),
	)
	var texts []string
	if err := d.run(ctx, chromedpOpTimeout, chromedp.Evaluate(js, &texts)); err != nil {
		return nil, fmt.Errorf("read text of %q: %w", selector, err)
	}
	return texts, nil
}

func (d *chromedpDriver) CountVisible(ctx context.Context, selector string) (int, error) {
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).filter(el => el.getClientRects().length > 0).length`,
		strconv.Quote(selector),
	)
	var count int
	if err := d.run(ctx, chromedpOpTimeout, chromedp.Evaluate(js, &count)); err != nil {
		return 0, fmt.Errorf("enumerate %q: %w", selector, err)
	}
	return count, nil
}

func (d *chromedpDriver) Close() error {
	d.cancel()
	d.allocCancel()
	return nil
}
