// Package browser owns the single live browser session: launching it with a
// persistent profile, choosing between the two launch strategies, and tearing
// it down. Other packages drive the page only through the Driver interface
// and never create or close the underlying handle themselves.
package browser

import (
	"context"
	"time"
)

// Strategy identifies how the browser session was obtained. It is resolved
// once at Start and never changes for the lifetime of the session.
type Strategy string

const (
	// StrategySystemChrome launches a real installed Chrome with the
	// persistent profile and attaches over CDP. Preferred: a genuine browser
	// binary with a genuine profile carries the least automation fingerprint.
	StrategySystemChrome Strategy = "system-chrome"

	// StrategyDevTools drives a DevTools-protocol exec allocator directly,
	// with explicit anti-automation flags. Used when the preferred path's
	// dependencies (system Chrome, playwright driver) are unavailable.
	StrategyDevTools Strategy = "devtools"
)

// Driver is the page-driving surface shared by both launch strategies.
// Every blocking call is bounded either by the passed timeout or by the
// context deadline; none may hang forever.
type Driver interface {
	// Navigate loads url and waits for the load event, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// CurrentURL reports the page's current location.
	CurrentURL(ctx context.Context) (string, error)

	// WaitReady waits until the document body is present.
	WaitReady(ctx context.Context, timeout time.Duration) error

	// Fill clears the first element matching selector and types text into it.
	Fill(ctx context.Context, selector, text string, timeout time.Duration) error

	// Press sends a key (e.g. "Enter") to the element matching selector.
	Press(ctx context.Context, selector, key string) error

	// Click clicks the first visible element matching selector.
	Click(ctx context.Context, selector string, timeout time.Duration) error

	// TextContents returns the rendered text of every element matching
	// selector. A selector that matches nothing yields an empty slice.
	TextContents(ctx context.Context, selector string) ([]string, error)

	// CountVisible reports how many elements matching selector are visible.
	CountVisible(ctx context.Context, selector string) (int, error)

	// Close releases the underlying browser resources.
	Close() error
}
