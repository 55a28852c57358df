package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SessionState is the slice of session state health checks need. Kept local
// so this package does not depend on the browser packages.
type SessionState interface {
	Started() bool
	Authenticated() bool
}

// Health is one health observation.
type Health struct {
	Healthy       bool          `json:"healthy"`
	BrowserStatus string        `json:"browser_status"`
	AuthStatus    string        `json:"auth_status"`
	Uptime        time.Duration `json:"uptime"`
}

// HealthChecker evaluates session health on demand and, optionally, on a
// periodic loop that logs degradations.
type HealthChecker struct {
	mu        sync.Mutex
	state     SessionState
	startedAt time.Time
}

// NewHealthChecker builds a checker with no session attached yet.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{startedAt: time.Now()}
}

// SetSession attaches the session to observe. May be called again after a
// browser restart.
func (h *HealthChecker) SetSession(s SessionState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = s
}

// Check returns the current health observation.
func (h *HealthChecker) Check() Health {
	h.mu.Lock()
	state := h.state
	started := h.startedAt
	h.mu.Unlock()

	health := Health{
		BrowserStatus: "not_started",
		AuthStatus:    "unknown",
		Uptime:        time.Since(started),
	}

	if state == nil || !state.Started() {
		return health
	}

	health.BrowserStatus = "running"
	if state.Authenticated() {
		health.AuthStatus = "authenticated"
		health.Healthy = true
	} else {
		health.AuthStatus = "login_required"
	}
	return health
}

// RunPeriodic checks health every interval until ctx is done, logging any
// unhealthy observation.
func (h *HealthChecker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if health := h.Check(); !health.Healthy {
				fmt.Printf("[Health] degraded: browser=%s auth=%s\n",
					health.BrowserStatus, health.AuthStatus)
			}
		}
	}
}
