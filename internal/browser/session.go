package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nlmcp/nlmcp/internal/config"
)

// launcher is one startup strategy.
type launcher struct {
	strategy Strategy
	launch   func(cfg *config.Config) (Driver, error)
}

// Session owns the single browser instance and the state tied to it: the
// authentication flag and the currently open notebook. Both are reset when
// the session (re)starts because they describe the live page, not the config.
type Session struct {
	mu  sync.Mutex
	cfg *config.Config

	driver   Driver
	strategy Strategy

	authenticated   bool
	currentNotebook string
	startedAt       time.Time

	launchers []launcher
}

// NewSession builds an unstarted session. The browser launches on Start.
func NewSession(cfg *config.Config) *Session {
	return &Session{
		cfg: cfg,
		launchers: []launcher{
			{StrategySystemChrome, launchSystemChrome},
			{StrategyDevTools, launchDevTools},
		},
	}
}

// NewSessionWithDriver wraps an existing driver. Used by tooling and tests
// that supply their own page driver.
func NewSessionWithDriver(cfg *config.Config, d Driver, strategy Strategy) *Session {
	return &Session{
		cfg:       cfg,
		driver:    d,
		strategy:  strategy,
		startedAt: time.Now(),
	}
}

// Start launches the browser, trying each strategy in order. Idempotent: a
// started session returns nil immediately.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var failures []error
	for _, l := range s.launchers {
		d, err := l.launch(s.cfg)
		if err != nil {
			fmt.Printf("[Browser] %s launch failed: %v\n", l.strategy, err)
			failures = append(failures, fmt.Errorf("%s: %w", l.strategy, err))
			continue
		}

		s.driver = d
		s.strategy = l.strategy
		s.authenticated = false
		s.currentNotebook = ""
		s.startedAt = time.Now()
		fmt.Printf("[Browser] session started (strategy=%s)\n", l.strategy)
		return nil
	}

	return &BrowserError{Op: "start session", Err: errors.Join(failures...)}
}

// Stop closes the browser. No-op on a stopped session; close errors are
// logged and swallowed so shutdown paths can always call Stop.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver == nil {
		return nil
	}

	if err := s.driver.Close(); err != nil {
		fmt.Printf("[Browser] close error (ignored): %v\n", err)
	}

	s.driver = nil
	s.authenticated = false
	s.currentNotebook = ""
	return nil
}

// Driver returns the live driver, or nil when the session is stopped.
func (s *Session) Driver() Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver
}

// Started reports whether a browser is currently attached.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver != nil
}

// Strategy reports which launch path produced the current session.
func (s *Session) Strategy() Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategy
}

// Authenticated reports the last observed authentication state.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// SetAuthenticated records the authentication state observed on the page.
func (s *Session) SetAuthenticated(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = v
}

// CurrentNotebook returns the id of the notebook the page is on, if any.
func (s *Session) CurrentNotebook() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentNotebook
}

// SetCurrentNotebook records a successful notebook navigation.
func (s *Session) SetCurrentNotebook(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentNotebook = id
}

// StartedAt returns when the current session came up.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}
