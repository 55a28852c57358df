// Package client drives the NotebookLM web UI through a browser session:
// authentication checks, notebook navigation, sending messages, and reading
// back the streamed response.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nlmcp/nlmcp/internal/browser"
	"github.com/nlmcp/nlmcp/internal/config"
	"github.com/nlmcp/nlmcp/internal/devlog"
)

// locatorWait bounds each attempt in a selector cascade. Short on purpose: a
// cascade of six selectors must fail fast, not stack page-load timeouts.
const locatorWait = 2 * time.Second

// Session is the browser-session surface the client needs. Implemented by
// browser.Session; tests substitute fakes.
type Session interface {
	Start(ctx context.Context) error
	Stop() error
	Driver() browser.Driver
	Started() bool
	Authenticated() bool
	SetAuthenticated(v bool)
	CurrentNotebook() string
	SetCurrentNotebook(id string)
}

// Client is the NotebookLM automation client. All methods require Start to
// have succeeded; they return errors rather than launching lazily.
type Client struct {
	cfg     *config.Config
	session Session
	sel     selectorSet

	mu              sync.Mutex
	defaultNotebook string
}

// New builds a client owning a fresh browser session.
func New(cfg *config.Config) *Client {
	return NewWithSession(cfg, browser.NewSession(cfg))
}

// NewWithSession builds a client over an existing session.
func NewWithSession(cfg *config.Config, s Session) *Client {
	return &Client{
		cfg:             cfg,
		session:         s,
		sel:             resolveSelectors(cfg.Selectors),
		defaultNotebook: cfg.DefaultNotebookID,
	}
}

// Start launches the underlying browser session.
func (c *Client) Start(ctx context.Context) error {
	return c.session.Start(ctx)
}

// Close stops the underlying browser session.
func (c *Client) Close() error {
	return c.session.Stop()
}

// Session exposes the underlying session for health reporting.
func (c *Client) Session() Session {
	return c.session
}

// DefaultNotebook returns the notebook id used when none is explicit.
func (c *Client) DefaultNotebook() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultNotebook
}

// SetDefaultNotebook changes the default notebook id for later sends.
func (c *Client) SetDefaultNotebook(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultNotebook = id
}

// EnsureAuthenticated navigates to NotebookLM and inspects where the page
// lands. Returns false when Google bounced to a sign-in page; login is a
// state, not a failure. An unreadable page is an AuthenticationError.
func (c *Client) EnsureAuthenticated(ctx context.Context) (bool, error) {
	drv := c.session.Driver()
	if drv == nil {
		return false, &AuthenticationError{Msg: "session not started"}
	}

	target := c.cfg.BaseURL
	if nb := c.DefaultNotebook(); nb != "" {
		target = c.cfg.NotebookURL(nb)
	}

	if err := drv.Navigate(ctx, target, c.cfg.PageLoadTimeout()); err != nil {
		return false, &AuthenticationError{Msg: "failed to load " + target, Err: err}
	}
	if err := drv.WaitReady(ctx, c.cfg.PageLoadTimeout()); err != nil {
		return false, &AuthenticationError{Msg: "page never became ready", Err: err}
	}

	url, err := drv.CurrentURL(ctx)
	if err != nil {
		return false, &AuthenticationError{Msg: "failed to read current URL", Err: err}
	}

	if isSignInURL(url) {
		devlog.Printf("[Auth] sign-in required (landed on %s)", url)
		c.session.SetAuthenticated(false)
		return false, nil
	}

	devlog.Printf("[Auth] authenticated (landed on %s)", url)
	c.session.SetAuthenticated(true)
	return true, nil
}

func isSignInURL(url string) bool {
	lower := strings.ToLower(url)
	for _, pattern := range signInURLPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// NavigateToNotebook opens the notebook with the given id and waits for the
// page to become ready. The session's current notebook is updated only after
// both steps succeed, so a failed navigation leaves prior state intact.
func (c *Client) NavigateToNotebook(ctx context.Context, notebookID string) (string, error) {
	drv := c.session.Driver()
	if drv == nil {
		return "", &NavigationError{NotebookID: notebookID, Err: errors.New("session not started")}
	}

	url := c.cfg.NotebookURL(notebookID)
	if err := drv.Navigate(ctx, url, c.cfg.PageLoadTimeout()); err != nil {
		return "", &NavigationError{NotebookID: notebookID, Err: err}
	}
	if err := drv.WaitReady(ctx, c.cfg.PageLoadTimeout()); err != nil {
		return "", &NavigationError{NotebookID: notebookID, Err: err}
	}

	c.session.SetCurrentNotebook(notebookID)

	landed, err := drv.CurrentURL(ctx)
	if err != nil {
		landed = url
	}
	devlog.Printf("[Nav] notebook %s open at %s", notebookID, landed)
	return landed, nil
}

// SendMessage types text into the chat input and submits it. Requires the
// session to be authenticated; checked before any DOM work so an unauthorized
// call cannot disturb the page.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if !c.session.Authenticated() {
		return &ChatError{Msg: "not authenticated"}
	}

	drv := c.session.Driver()
	if drv == nil {
		return &ChatError{Msg: "session not started"}
	}

	if err := c.reconcileNotebook(ctx, drv); err != nil {
		return err
	}

	input, err := c.fillChatInput(ctx, drv, text)
	if err != nil {
		return err
	}

	return c.submit(ctx, drv, input)
}

// reconcileNotebook re-navigates when the page is not on the intended
// notebook, e.g. after a redirect or a manual detour.
func (c *Client) reconcileNotebook(ctx context.Context, drv browser.Driver) error {
	intended := c.session.CurrentNotebook()
	if intended == "" {
		intended = c.DefaultNotebook()
	}
	if intended == "" {
		return nil
	}

	current, err := drv.CurrentURL(ctx)
	if err == nil && strings.Contains(current, "notebook/"+intended) {
		return nil
	}

	devlog.Printf("[Chat] page drifted off notebook %s, re-navigating", intended)
	if _, err := c.NavigateToNotebook(ctx, intended); err != nil {
		return err
	}
	return nil
}

// fillChatInput walks the chat-input cascade; the first selector that accepts
// a fill wins. Fill clears the element first, so stale drafts never prepend.
func (c *Client) fillChatInput(ctx context.Context, drv browser.Driver, text string) (string, error) {
	for _, sel := range c.sel.chatInput {
		if err := drv.Fill(ctx, sel, text, locatorWait); err != nil {
			devlog.Printf("[Chat] input selector %q: %v", sel, err)
			continue
		}
		return sel, nil
	}
	return "", &ChatError{Msg: "could not find chat input"}
}

// submit presses Enter on the input; when that fails, tries the send-button
// cascade.
func (c *Client) submit(ctx context.Context, drv browser.Driver, input string) error {
	if err := drv.Press(ctx, input, "Enter"); err == nil {
		return nil
	}

	for _, sel := range c.sel.sendButton {
		if err := drv.Click(ctx, sel, locatorWait); err == nil {
			return nil
		}
	}
	return &ChatError{Msg: "failed to submit message"}
}

// SendMessageWithRetry retries transient send failures up to the configured
// attempt count. A missing authentication precondition is terminal; retrying
// cannot fix it.
func (c *Client) SendMessageWithRetry(ctx context.Context, text string) error {
	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = c.SendMessage(ctx, text)
		if err == nil {
			return nil
		}

		var chatErr *ChatError
		if errors.As(err, &chatErr) && chatErr.Msg == "not authenticated" {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		devlog.Printf("[Chat] send attempt %d/%d failed: %v", i+1, attempts, err)
	}
	return err
}

// ChatAndWait sends a message and blocks for the stabilized response.
func (c *Client) ChatAndWait(ctx context.Context, text string, maxWait time.Duration) (string, error) {
	if err := c.SendMessageWithRetry(ctx, text); err != nil {
		return "", err
	}
	return c.GetResponse(ctx, true, maxWait), nil
}

// String used in logs to describe the target without dumping config.
func (c *Client) String() string {
	return fmt.Sprintf("notebooklm client (base=%s)", c.cfg.BaseURL)
}
