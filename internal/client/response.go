package client

import (
	"context"
	"strings"
	"time"

	"github.com/nlmcp/nlmcp/internal/devlog"
)

// noResponseSentinel is returned when no answer text is visible at all.
const noResponseSentinel = "No response content found"

// timeoutSentinel is returned when the wait budget expires before any text
// was captured.
const timeoutSentinel = "Response timeout - no content retrieved"

// GetResponse reads the current answer, optionally waiting for it to finish
// streaming first, and strips UI artifacts. Response acquisition never
// returns an error for an unfinished or absent answer; sentinels stand in.
func (c *Client) GetResponse(ctx context.Context, waitForCompletion bool, maxWait time.Duration) string {
	var raw string
	if waitForCompletion {
		raw = c.WaitForStable(ctx, maxWait)
	} else {
		raw = c.Snapshot(ctx)
	}
	return cleanResponse(raw, c.sel.artifactTokens)
}

// Snapshot reads the best response candidate currently on the page without
// waiting. Each container selector contributes all its matches; the longest
// text across every match wins. When no container matches, a generic scan
// over trailing text nodes runs as a last resort.
func (c *Client) Snapshot(ctx context.Context) string {
	drv := c.session.Driver()
	if drv == nil {
		return noResponseSentinel
	}

	var candidates []string
	for _, sel := range c.sel.responseContainers {
		texts, err := drv.TextContents(ctx, sel)
		if err != nil {
			continue
		}
		candidates = append(candidates, texts...)
	}

	if best := bestSnapshot(candidates); best != "" {
		return best
	}

	texts, err := drv.TextContents(ctx, "p, div, span")
	if err == nil {
		if found := fallbackScan(texts, c.sel.boilerplate); found != "" {
			return found
		}
	}

	return noResponseSentinel
}

// WaitForStable polls Snapshot until the text stops changing. Completion is
// two conditions together: the same text observed on N consecutive polls, and
// no streaming indicator visible. On budget expiry the last snapshot is
// returned as-is; a truncated answer beats no answer.
func (c *Client) WaitForStable(ctx context.Context, maxWait time.Duration) string {
	if maxWait <= 0 {
		maxWait = c.cfg.StreamingWait()
	}
	required := c.cfg.ResponseStabilityChecks
	poll := c.cfg.PollInterval()

	deadline := time.Now().Add(maxWait)
	last := ""
	stable := 0

	for time.Now().Before(deadline) {
		current := c.Snapshot(ctx)

		if current == last {
			stable++
			if stable >= required && !c.streamingVisible(ctx) {
				devlog.Printf("[Response] stable after %d identical polls", stable)
				return current
			}
		} else {
			stable = 0
			last = current
		}

		select {
		case <-ctx.Done():
			return lastOrTimeout(last)
		case <-time.After(poll):
		}
	}

	devlog.Printf("[Response] wait budget expired, returning last snapshot")
	return lastOrTimeout(last)
}

func lastOrTimeout(last string) string {
	if last != "" {
		return last
	}
	return timeoutSentinel
}

// streamingVisible reports whether any streaming indicator is on screen.
func (c *Client) streamingVisible(ctx context.Context) bool {
	drv := c.session.Driver()
	if drv == nil {
		return false
	}
	for _, sel := range c.sel.streamingIndicators {
		n, err := drv.CountVisible(ctx, sel)
		if err != nil {
			continue
		}
		if n > 0 {
			return true
		}
	}
	return false
}

// bestSnapshot picks the longest non-empty trimmed candidate.
func bestSnapshot(candidates []string) string {
	best := ""
	for _, t := range candidates {
		t = strings.TrimSpace(t)
		if len(t) > len(best) {
			best = t
		}
	}
	return best
}

// fallbackScan walks the trailing text nodes newest-first and returns the
// first one long enough to be an answer and free of known boilerplate.
func fallbackScan(texts []string, boilerplate []string) string {
	start := len(texts) - fallbackScanWindow
	if start < 0 {
		start = 0
	}

	for i := len(texts) - 1; i >= start; i-- {
		t := strings.TrimSpace(texts[i])
		if len(t) <= fallbackMinLength {
			continue
		}
		if containsBoilerplate(t, boilerplate) {
			continue
		}
		return t
	}
	return ""
}

func containsBoilerplate(text string, boilerplate []string) bool {
	lower := strings.ToLower(text)
	for _, b := range boilerplate {
		if strings.Contains(lower, b) {
			return true
		}
	}
	return false
}

// cleanResponse strips lines that are exactly a known UI artifact token.
// Substantive lines pass through untouched, including ones adjacent to
// stripped artifacts.
func cleanResponse(text string, artifacts []string) string {
	if text == "" {
		return text
	}

	tokens := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		tokens[strings.ToLower(strings.TrimSpace(a))] = true
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		if trimmed != "" && tokens[trimmed] {
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}
