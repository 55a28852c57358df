package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlmcp/nlmcp/internal/browser"
	"github.com/nlmcp/nlmcp/internal/config"
)

// fakeDriver scripts page behavior per selector.
type fakeDriver struct {
	mu sync.Mutex

	url         string
	navigateErr error
	readyErr    error

	fillOK  map[string]bool
	filled  []string
	navs    []string
	pressed []string
	clicked []string

	pressErr      error
	pressFailures int
	clickOK       map[string]bool

	texts   map[string][]string
	textsFn func(selector string) []string
	visible map[string]int
}

func (d *fakeDriver) Navigate(_ context.Context, url string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.navigateErr != nil {
		return d.navigateErr
	}
	d.navs = append(d.navs, url)
	d.url = url
	return nil
}

func (d *fakeDriver) CurrentURL(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *fakeDriver) WaitReady(context.Context, time.Duration) error {
	return d.readyErr
}

func (d *fakeDriver) Fill(_ context.Context, selector, text string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.fillOK[selector] {
		return errors.New("no such element")
	}
	d.filled = append(d.filled, selector+"="+text)
	return nil
}

func (d *fakeDriver) Press(_ context.Context, selector, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pressFailures > 0 {
		d.pressFailures--
		return errors.New("key dispatch failed")
	}
	if d.pressErr != nil {
		return d.pressErr
	}
	d.pressed = append(d.pressed, selector+"+"+key)
	return nil
}

func (d *fakeDriver) Click(_ context.Context, selector string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.clickOK[selector] {
		return errors.New("no such element")
	}
	d.clicked = append(d.clicked, selector)
	return nil
}

func (d *fakeDriver) TextContents(_ context.Context, selector string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.textsFn != nil {
		return d.textsFn(selector), nil
	}
	return d.texts[selector], nil
}

func (d *fakeDriver) CountVisible(_ context.Context, selector string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible[selector], nil
}

func (d *fakeDriver) Close() error { return nil }

// fakeSession is a minimal in-memory Session.
type fakeSession struct {
	mu       sync.Mutex
	drv      browser.Driver
	started  bool
	auth     bool
	notebook string
}

func (s *fakeSession) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *fakeSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

func (s *fakeSession) Driver() browser.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	return s.drv
}

func (s *fakeSession) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *fakeSession) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

func (s *fakeSession) SetAuthenticated(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = v
}

func (s *fakeSession) CurrentNotebook() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notebook
}

func (s *fakeSession) SetCurrentNotebook(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notebook = id
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timeout = 1
	cfg.StreamingTimeout = 1
	cfg.PollIntervalMS = 5
	cfg.ResponseStabilityChecks = 2
	return cfg
}

func newTestClient(drv *fakeDriver) (*Client, *fakeSession) {
	sess := &fakeSession{drv: drv, started: true}
	return NewWithSession(testConfig(), sess), sess
}

func TestEnsureAuthenticatedSignedIn(t *testing.T) {
	drv := &fakeDriver{url: "https://notebooklm.google.com/"}
	cli, sess := newTestClient(drv)

	ok, err := cli.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, sess.Authenticated())
}

func TestEnsureAuthenticatedLoginRequired(t *testing.T) {
	drv := &fakeDriver{url: "https://accounts.google.com/v3/signin/identifier"}
	cli, sess := newTestClient(drv)
	sess.SetAuthenticated(true)

	ok, err := cli.EnsureAuthenticated(context.Background())
	require.NoError(t, err, "login required is a state, not an error")
	assert.False(t, ok)
	assert.False(t, sess.Authenticated(), "stale auth flag must be cleared")
}

func TestEnsureAuthenticatedPageTimeout(t *testing.T) {
	drv := &fakeDriver{readyErr: errors.New("deadline exceeded")}
	cli, _ := newTestClient(drv)

	_, err := cli.EnsureAuthenticated(context.Background())
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestEnsureAuthenticatedNavigatesToDefaultNotebook(t *testing.T) {
	drv := &fakeDriver{}
	cli, _ := newTestClient(drv)
	cli.SetDefaultNotebook("nb-7")

	_, err := cli.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	require.Len(t, drv.navs, 1)
	assert.Equal(t, "https://notebooklm.google.com/notebook/nb-7", drv.navs[0])
}

func TestNavigateToNotebook(t *testing.T) {
	drv := &fakeDriver{}
	cli, sess := newTestClient(drv)

	url, err := cli.NavigateToNotebook(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://notebooklm.google.com/notebook/abc123", url)
	assert.Equal(t, "abc123", sess.CurrentNotebook())
}

func TestNavigateToNotebookFailureKeepsState(t *testing.T) {
	drv := &fakeDriver{navigateErr: errors.New("net::ERR_TIMED_OUT")}
	cli, sess := newTestClient(drv)
	sess.SetCurrentNotebook("old")

	_, err := cli.NavigateToNotebook(context.Background(), "new")
	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, "new", navErr.NotebookID)
	assert.Equal(t, "old", sess.CurrentNotebook(), "failed navigation must not change the current notebook")
}

func TestSendMessageRequiresAuth(t *testing.T) {
	drv := &fakeDriver{fillOK: map[string]bool{"textarea[placeholder*='Ask']": true}}
	cli, _ := newTestClient(drv)

	err := cli.SendMessage(context.Background(), "hello")
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Empty(t, drv.filled, "unauthenticated send must not touch the page")
}

func TestSendMessageCascadeStopsAtFirstMatch(t *testing.T) {
	drv := &fakeDriver{
		url:    "https://notebooklm.google.com/notebook/nb-1",
		fillOK: map[string]bool{"[contenteditable='true'][role='textbox']": true},
	}
	cli, sess := newTestClient(drv)
	sess.SetAuthenticated(true)
	sess.SetCurrentNotebook("nb-1")

	require.NoError(t, cli.SendMessage(context.Background(), "hi there"))
	require.Len(t, drv.filled, 1)
	assert.Equal(t, "[contenteditable='true'][role='textbox']=hi there", drv.filled[0])
	require.Len(t, drv.pressed, 1)
	assert.Equal(t, "[contenteditable='true'][role='textbox']+Enter", drv.pressed[0])
}

func TestSendMessageButtonFallback(t *testing.T) {
	drv := &fakeDriver{
		url:      "https://notebooklm.google.com/notebook/nb-1",
		fillOK:   map[string]bool{"textarea[placeholder*='Ask']": true},
		pressErr: errors.New("key dispatch failed"),
		clickOK:  map[string]bool{"button[aria-label*='Send']": true},
	}
	cli, sess := newTestClient(drv)
	sess.SetAuthenticated(true)
	sess.SetCurrentNotebook("nb-1")

	require.NoError(t, cli.SendMessage(context.Background(), "hi"))
	assert.Equal(t, []string{"button[aria-label*='Send']"}, drv.clicked)
}

func TestSendMessageNoInputFound(t *testing.T) {
	drv := &fakeDriver{url: "https://notebooklm.google.com/notebook/nb-1"}
	cli, sess := newTestClient(drv)
	sess.SetAuthenticated(true)
	sess.SetCurrentNotebook("nb-1")

	err := cli.SendMessage(context.Background(), "hi")
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Contains(t, chatErr.Error(), "could not find chat input")
}

func TestSendMessageBothSubmitMethodsFail(t *testing.T) {
	drv := &fakeDriver{
		url:      "https://notebooklm.google.com/notebook/nb-1",
		fillOK:   map[string]bool{"textarea[placeholder*='Ask']": true},
		pressErr: errors.New("key dispatch failed"),
	}
	cli, sess := newTestClient(drv)
	sess.SetAuthenticated(true)
	sess.SetCurrentNotebook("nb-1")

	err := cli.SendMessage(context.Background(), "hi")
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Contains(t, chatErr.Error(), "failed to submit")
}

func TestSendMessageWithRetryRecovers(t *testing.T) {
	drv := &fakeDriver{
		url:           "https://notebooklm.google.com/notebook/nb-1",
		fillOK:        map[string]bool{"textarea[placeholder*='Ask']": true},
		pressFailures: 1,
	}
	cli, sess := newTestClient(drv)
	sess.SetAuthenticated(true)
	sess.SetCurrentNotebook("nb-1")

	require.NoError(t, cli.SendMessageWithRetry(context.Background(), "hi"))
	assert.Len(t, drv.pressed, 1, "second attempt should submit")
}

func TestSendMessageWithRetryStopsOnAuthFailure(t *testing.T) {
	drv := &fakeDriver{fillOK: map[string]bool{"textarea[placeholder*='Ask']": true}}
	cli, _ := newTestClient(drv)

	err := cli.SendMessageWithRetry(context.Background(), "hi")
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Empty(t, drv.filled, "unauthenticated send must not retry against the page")
}

func TestSendMessageReconcilesNotebook(t *testing.T) {
	drv := &fakeDriver{
		url:    "https://notebooklm.google.com/",
		fillOK: map[string]bool{"textarea[placeholder*='Ask']": true},
	}
	cli, sess := newTestClient(drv)
	sess.SetAuthenticated(true)
	sess.SetCurrentNotebook("nb-9")

	require.NoError(t, cli.SendMessage(context.Background(), "hi"))
	require.Len(t, drv.navs, 1, "drifted page must be re-navigated before sending")
	assert.Equal(t, "https://notebooklm.google.com/notebook/nb-9", drv.navs[0])
}
