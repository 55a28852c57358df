package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/nlmcp/nlmcp/internal/config"
	"github.com/nlmcp/nlmcp/internal/devlog"
)

// playwrightDriver attaches to a Chrome this server launched, over CDP. The
// browser is a real system binary running a real profile; the driver only
// holds the remote-control connection.
type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	chrome  *RunningChrome
}

// launchSystemChrome is the preferred startup path: find an installed Chrome,
// launch it with the persistent profile and a CDP port, attach over CDP.
func launchSystemChrome(cfg *config.Config) (Driver, error) {
	running, err := LaunchChrome(cfg)
	if err != nil {
		return nil, err
	}

	// The Node driver is required; browsers are not, since we attach to our
	// own Chrome instead of a playwright-managed one.
	if err := playwright.Install(&playwright.RunOptions{SkipInstallBrowsers: true}); err != nil {
		_ = StopChrome(running, 3*time.Second)
		return nil, fmt.Errorf("playwright driver unavailable: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		_ = StopChrome(running, 3*time.Second)
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.ConnectOverCDP(running.CDPURL())
	if err != nil {
		_ = pw.Stop()
		_ = StopChrome(running, 3*time.Second)
		return nil, fmt.Errorf("failed to connect to CDP at %s: %w", running.CDPURL(), err)
	}

	page, err := firstPage(browser)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		_ = StopChrome(running, 3*time.Second)
		return nil, err
	}

	devlog.Printf("[Browser] attached to %s (pid %d) via CDP", running.Executable.Path, running.PID)

	return &playwrightDriver{
		pw:      pw,
		browser: browser,
		page:    page,
		chrome:  running,
	}, nil
}

// firstPage returns an existing page (the about:blank tab Chrome opened) or
// creates one.
func firstPage(browser playwright.Browser) (playwright.Page, error) {
	for _, bctx := range browser.Contexts() {
		if pages := bctx.Pages(); len(pages) > 0 {
			return pages[0], nil
		}
	}

	var bctx playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		bctx = contexts[0]
	} else {
		var err error
		bctx, err = browser.NewContext()
		if err != nil {
			return nil, fmt.Errorf("failed to create browser context: %w", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

func (d *playwrightDriver) Navigate(_ context.Context, url string, timeout time.Duration) error {
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (d *playwrightDriver) CurrentURL(_ context.Context) (string, error) {
	return d.page.URL(), nil
}

func (d *playwrightDriver) WaitReady(_ context.Context, timeout time.Duration) error {
	_, err := d.page.WaitForSelector("body", playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for document body: %w", err)
	}
	return nil
}

func (d *playwrightDriver) Fill(_ context.Context, selector, text string, timeout time.Duration) error {
	loc := d.page.Locator(selector).First()
	return loc.Fill(text, playwright.LocatorFillOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (d *playwrightDriver) Press(_ context.Context, selector, key string) error {
	return d.page.Locator(selector).First().Press(key)
}

func (d *playwrightDriver) Click(_ context.Context, selector string, timeout time.Duration) error {
	return d.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (d *playwrightDriver) TextContents(_ context.Context, selector string) ([]string, error) {
	texts, err := d.page.Locator(selector).AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("read text of %q: %w", selector, err)
	}
	return texts, nil
}

func (d *playwrightDriver) CountVisible(_ context.Context, selector string) (int, error) {
	locs, err := d.page.Locator(selector).All()
	if err != nil {
		return 0, fmt.Errorf("enumerate %q: %w", selector, err)
	}

	count := 0
	for _, loc := range locs {
		visible, err := loc.IsVisible()
		if err != nil {
			continue
		}
		if visible {
			count++
		}
	}
	return count, nil
}

func (d *playwrightDriver) Close() error {
	if d.browser != nil {
		_ = d.browser.Close()
	}
	if d.pw != nil {
		_ = d.pw.Stop()
	}
	return StopChrome(d.chrome, 5*time.Second)
}
