package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nlmcp/nlmcp/internal/config"
)

type stubDriver struct {
	closed   bool
	closeErr error
}

func (d *stubDriver) Navigate(context.Context, string, time.Duration) error { return nil }
func (d *stubDriver) CurrentURL(context.Context) (string, error)            { return "about:blank", nil }
func (d *stubDriver) WaitReady(context.Context, time.Duration) error        { return nil }
func (d *stubDriver) Fill(context.Context, string, string, time.Duration) error {
	return nil
}
func (d *stubDriver) Press(context.Context, string, string) error { return nil }
func (d *stubDriver) Click(context.Context, string, time.Duration) error {
	return nil
}
func (d *stubDriver) TextContents(context.Context, string) ([]string, error) { return nil, nil }
func (d *stubDriver) CountVisible(context.Context, string) (int, error)      { return 0, nil }
func (d *stubDriver) Close() error {
	d.closed = true
	return d.closeErr
}

func newStubSession(launchers ...launcher) *Session {
	s := NewSession(config.DefaultConfig())
	s.launchers = launchers
	return s
}

func TestStartIdempotent(t *testing.T) {
	launches := 0
	s := newStubSession(launcher{StrategySystemChrome, func(*config.Config) (Driver, error) {
		launches++
		return &stubDriver{}, nil
	}})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}

	if launches != 1 {
		t.Errorf("launched %d times, want 1", launches)
	}
	if !s.Started() {
		t.Error("session should be started")
	}
	if s.Strategy() != StrategySystemChrome {
		t.Errorf("strategy = %s", s.Strategy())
	}
}

func TestStartFallsBack(t *testing.T) {
	s := newStubSession(
		launcher{StrategySystemChrome, func(*config.Config) (Driver, error) {
			return nil, errors.New("no chrome installed")
		}},
		launcher{StrategyDevTools, func(*config.Config) (Driver, error) {
			return &stubDriver{}, nil
		}},
	)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Strategy() != StrategyDevTools {
		t.Errorf("strategy = %s, want fallback", s.Strategy())
	}
}

func TestStartAllStrategiesFail(t *testing.T) {
	s := newStubSession(
		launcher{StrategySystemChrome, func(*config.Config) (Driver, error) {
			return nil, errors.New("no chrome")
		}},
		launcher{StrategyDevTools, func(*config.Config) (Driver, error) {
			return nil, errors.New("no allocator")
		}},
	)

	err := s.Start(context.Background())
	var berr *BrowserError
	if !errors.As(err, &berr) {
		t.Fatalf("expected BrowserError, got %v", err)
	}
	if s.Started() {
		t.Error("session must stay stopped after a failed start")
	}
}

func TestStartResetsPageState(t *testing.T) {
	s := newStubSession(launcher{StrategyDevTools, func(*config.Config) (Driver, error) {
		return &stubDriver{}, nil
	}})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.SetAuthenticated(true)
	s.SetCurrentNotebook("nb-1")

	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if s.Authenticated() {
		t.Error("auth flag must reset on restart")
	}
	if s.CurrentNotebook() != "" {
		t.Error("current notebook must reset on restart")
	}
}

func TestStopSwallowsCloseErrors(t *testing.T) {
	drv := &stubDriver{closeErr: errors.New("connection lost")}
	s := newStubSession(launcher{StrategyDevTools, func(*config.Config) (Driver, error) {
		return drv, nil
	}})

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop must swallow close errors, got %v", err)
	}
	if !drv.closed {
		t.Error("driver was not closed")
	}

	// second Stop is a no-op
	if err := s.Stop(); err != nil {
		t.Errorf("Stop on stopped session: %v", err)
	}
}

func TestSessionWithDriver(t *testing.T) {
	drv := &stubDriver{}
	s := NewSessionWithDriver(config.DefaultConfig(), drv, StrategyDevTools)

	if !s.Started() {
		t.Error("wrapped session should report started")
	}
	if s.Driver() != drv {
		t.Error("wrong driver returned")
	}
}
