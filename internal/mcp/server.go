// Package mcp exposes the NotebookLM client as an MCP tool server over
// stdio or streamable HTTP. One browser serves all callers, so every
// session-touching tool runs behind a weighted semaphore.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/semaphore"

	"github.com/nlmcp/nlmcp/internal/client"
	"github.com/nlmcp/nlmcp/internal/config"
	"github.com/nlmcp/nlmcp/internal/devlog"
	"github.com/nlmcp/nlmcp/internal/monitoring"
	"github.com/nlmcp/nlmcp/internal/security"
)

const serverVersion = "1.0.0"

// Server is the MCP tool gateway in front of a single NotebookLM client.
type Server struct {
	cfg     *config.Config
	server  *mcp.Server
	metrics *monitoring.Metrics
	health  *monitoring.HealthChecker

	// sem serializes access to the browser session. Tool handlers hold a
	// slot for their full DOM-touching duration.
	sem     *semaphore.Weighted
	maxConc int64

	mu              sync.Mutex
	cli             *client.Client
	defaultNotebook string
	everStarted     bool
	closed          bool
}

// NewServer builds the gateway and registers all tools. The browser is not
// launched yet; the first session-touching tool call does that.
func NewServer(cfg *config.Config) *Server {
	maxConc := int64(cfg.MaxConcurrentRequests)
	if maxConc < 1 {
		maxConc = 1
	}

	s := &Server{
		cfg:             cfg,
		metrics:         monitoring.NewMetrics(),
		health:          monitoring.NewHealthChecker(),
		sem:             semaphore.NewWeighted(maxConc),
		maxConc:         maxConc,
		defaultNotebook: cfg.DefaultNotebookID,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    cfg.ServerName,
		Version: serverVersion,
	}, nil)

	s.registerTools()
	return s
}

// Metrics exposes the gateway's metrics collector.
func (s *Server) Metrics() *monitoring.Metrics {
	return s.metrics
}

// ensureClient returns the live client, launching browser and running the
// authentication check on first use. A failed start leaves the client unset
// so the next call can retry from scratch.
func (s *Server) ensureClient(ctx context.Context) (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("server is shutting down")
	}
	if s.cli != nil {
		return s.cli, nil
	}

	cli := client.New(s.cfg)
	cli.SetDefaultNotebook(s.defaultNotebook)

	if err := cli.Start(ctx); err != nil {
		_ = cli.Close()
		return nil, err
	}
	if s.everStarted {
		s.metrics.RecordBrowserRestart()
	}
	s.everStarted = true
	s.metrics.SetActiveSessions(1)
	s.health.SetSession(cli.Session())

	authenticated, err := cli.EnsureAuthenticated(ctx)
	if err != nil {
		_ = cli.Close()
		s.metrics.SetActiveSessions(0)
		return nil, err
	}
	if !authenticated {
		s.metrics.RecordAuthFailure()
		if s.cfg.Headless {
			fmt.Printf("[Server] login required but running headless; start headful once to sign in\n")
		} else {
			fmt.Printf("[Server] login required: complete Google sign-in in the opened browser window\n")
		}
	}

	s.cli = cli
	return cli, nil
}

// currentClient returns the client without creating one.
func (s *Server) currentClient() *client.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cli
}

// toolFunc is a tool body returning a JSON-marshalable result.
type toolFunc func(ctx context.Context, req *mcp.CallToolRequest) (any, error)

// handler wraps a tool body with panic recovery, request logging, metrics,
// and, when gated, the session semaphore.
func (s *Server) handler(name string, gated bool, fn toolFunc) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (retResult *mcp.CallToolResult, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				fmt.Printf("[Server] PANIC in tool %s: %v\n", name, r)
				retResult = errorResult(fmt.Sprintf("tool panicked: %v", r))
				retErr = nil
			}
		}()

		reqID := uuid.NewString()[:8]
		devlog.Printf("[Server] %s tool=%s", reqID, name)

		if gated {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return errorResult(fmt.Sprintf("request cancelled while queued: %v", err)), nil
			}
			defer s.sem.Release(1)
		}

		start := time.Now()
		out, err := fn(ctx, req)
		s.metrics.RecordRequest(err == nil, time.Since(start))

		if err != nil {
			fmt.Printf("[Server] %s tool=%s failed: %v\n", reqID, name, err)
			return errorResult(err.Error()), nil
		}

		text, ok := out.(string)
		if !ok {
			data, merr := json.Marshal(out)
			if merr != nil {
				return errorResult(fmt.Sprintf("failed to encode result: %v", merr)), nil
			}
			text = string(data)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseArgs decodes tool arguments into v. Absent arguments leave v at its
// zero value.
func parseArgs(req *mcp.CallToolRequest, v any) error {
	data, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return fmt.Errorf("failed to read arguments: %w", err)
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// Run serves the gateway on the chosen transport until ctx is done.
func (s *Server) Run(ctx context.Context, transport, host string, port int) error {
	switch transport {
	case "", "stdio":
		fmt.Printf("[Server] %s v%s on stdio\n", s.cfg.ServerName, serverVersion)
		return s.server.Run(ctx, &mcp.StdioTransport{})
	case "http":
		return s.runHTTP(ctx, host, port)
	default:
		return fmt.Errorf("unknown transport: %s", transport)
	}
}

func (s *Server) runHTTP(ctx context.Context, host string, port int) error {
	if !isLoopback(host) && !s.cfg.AllowRemoteAccess {
		return fmt.Errorf("refusing to bind %s: set allow_remote_access to serve non-local interfaces", host)
	}

	r := chi.NewRouter()

	if s.cfg.RequireAPIKey {
		r.Use(security.APIKeyAuth(security.Options{
			Keys:        s.cfg.APIKeys,
			Header:      s.cfg.APIKeyHeader,
			AllowBearer: s.cfg.AllowBearerTokens,
			ExemptPaths: []string{"/healthz"},
			OnReject: func(*http.Request) {
				s.metrics.RecordAuthFailure()
			},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		health := s.health.Check()
		w.Header().Set("Content-Type", "application/json")
		if !health.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(health)
	})

	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
	r.Handle("/mcp", streamable)
	r.Handle("/mcp/*", streamable)

	if s.cfg.EnableMetrics {
		go s.serveMetrics(ctx, host)
	}
	if s.cfg.EnableHealthChecks {
		go s.health.RunPeriodic(ctx, time.Duration(s.cfg.HealthCheckInterval)*time.Second)
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("[Server] %s v%s on http://%s/mcp\n", s.cfg.ServerName, serverVersion, addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) serveMetrics(ctx context.Context, host string) {
	mux := chi.NewRouter()
	mux.Handle("/metrics", s.metrics.Handler())

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", s.cfg.MetricsPort))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("[Server] metrics on http://%s/metrics\n", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Printf("[Server] metrics server error: %v\n", err)
	}
}

func isLoopback(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// Close drains in-flight tool calls and shuts the browser down. New tool
// calls are refused as soon as Close begins.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cli := s.cli
	s.cli = nil
	s.mu.Unlock()

	// Take every semaphore slot so in-flight calls finish on their own
	// timeouts before the browser goes away.
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.sem.Acquire(drainCtx, s.maxConc); err == nil {
		s.sem.Release(s.maxConc)
	}

	s.metrics.SetActiveSessions(0)
	if cli != nil {
		return cli.Close()
	}
	return nil
}
