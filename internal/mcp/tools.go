package mcp

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "healthcheck",
		Description: "Check server, browser, and authentication status.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, s.handler("healthcheck", false, s.healthcheck))

	s.server.AddTool(&mcp.Tool{
		Name:        "send_chat_message",
		Description: "Send a message to the current NotebookLM notebook without waiting for the reply.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "The message to send.",
				},
			},
			"required": []string{"message"},
		},
	}, s.handler("send_chat_message", true, s.sendChatMessage))

	s.server.AddTool(&mcp.Tool{
		Name:        "get_chat_response",
		Description: "Wait for the current response to finish streaming and return it.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"max_wait": map[string]any{
					"type":        "integer",
					"description": "Maximum seconds to wait for a stable response.",
				},
			},
		},
	}, s.handler("get_chat_response", true, s.getChatResponse))

	s.server.AddTool(&mcp.Tool{
		Name:        "get_quick_response",
		Description: "Return whatever response text is currently visible, without waiting.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, s.handler("get_quick_response", true, s.getQuickResponse))

	s.server.AddTool(&mcp.Tool{
		Name:        "chat_with_notebook",
		Description: "Send a message and wait for the full reply, optionally switching notebook first.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "The message to send.",
				},
				"notebook_id": map[string]any{
					"type":        "string",
					"description": "Notebook to open before sending. Defaults to the current or default notebook.",
				},
				"max_wait": map[string]any{
					"type":        "integer",
					"description": "Maximum seconds to wait for a stable response.",
				},
			},
			"required": []string{"message"},
		},
	}, s.handler("chat_with_notebook", true, s.chatWithNotebook))

	s.server.AddTool(&mcp.Tool{
		Name:        "navigate_to_notebook",
		Description: "Open a notebook by id.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"notebook_id": map[string]any{
					"type":        "string",
					"description": "The notebook id from its URL.",
				},
			},
			"required": []string{"notebook_id"},
		},
	}, s.handler("navigate_to_notebook", true, s.navigateToNotebook))

	s.server.AddTool(&mcp.Tool{
		Name:        "get_default_notebook",
		Description: "Return the notebook id used when none is specified.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, s.handler("get_default_notebook", false, s.getDefaultNotebook))

	s.server.AddTool(&mcp.Tool{
		Name:        "set_default_notebook",
		Description: "Change the notebook id used when none is specified.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"notebook_id": map[string]any{
					"type":        "string",
					"description": "The new default notebook id.",
				},
			},
			"required": []string{"notebook_id"},
		},
	}, s.handler("set_default_notebook", false, s.setDefaultNotebook))
}

func (s *Server) healthcheck(_ context.Context, _ *mcp.CallToolRequest) (any, error) {
	resp := map[string]any{
		"server":    s.cfg.ServerName,
		"version":   serverVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"metrics":   s.metrics.Snapshot(),
	}

	// A status probe must never boot the browser; it reports on whatever
	// already exists.
	cli := s.currentClient()
	if cli == nil {
		resp["status"] = "unhealthy"
		resp["message"] = "client not initialized"
		return resp, nil
	}

	health := s.health.Check()
	resp["browser_status"] = health.BrowserStatus
	resp["authenticated"] = cli.Session().Authenticated()
	resp["default_notebook"] = s.getDefault()

	if cli.Session().Authenticated() {
		resp["status"] = "healthy"
	} else {
		resp["status"] = "needs_auth"
	}
	return resp, nil
}

func (s *Server) sendChatMessage(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var input struct {
		Message string `json:"message"`
	}
	if err := parseArgs(req, &input); err != nil {
		return nil, err
	}
	if input.Message == "" {
		return nil, errors.New("message is required")
	}

	cli, err := s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := cli.SendMessageWithRetry(ctx, input.Message); err != nil {
		return nil, err
	}
	return sentResult(input.Message), nil
}

func sentResult(message string) map[string]any {
	return map[string]any{
		"status":         "sent",
		"message_length": utf8.RuneCountInString(message),
	}
}

func (s *Server) getChatResponse(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var input struct {
		MaxWait int `json:"max_wait"`
	}
	if err := parseArgs(req, &input); err != nil {
		return nil, err
	}

	cli, err := s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	resp := cli.GetResponse(ctx, true, time.Duration(input.MaxWait)*time.Second)
	return map[string]any{"response": resp}, nil
}

func (s *Server) getQuickResponse(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	cli, err := s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	resp := cli.GetResponse(ctx, false, 0)
	return map[string]any{"response": resp}, nil
}

func (s *Server) chatWithNotebook(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var input struct {
		Message    string `json:"message"`
		NotebookID string `json:"notebook_id"`
		MaxWait    int    `json:"max_wait"`
	}
	if err := parseArgs(req, &input); err != nil {
		return nil, err
	}
	if input.Message == "" {
		return nil, errors.New("message is required")
	}

	cli, err := s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	if input.NotebookID != "" {
		if _, err := cli.NavigateToNotebook(ctx, input.NotebookID); err != nil {
			return nil, err
		}
	}

	resp, err := cli.ChatAndWait(ctx, input.Message, time.Duration(input.MaxWait)*time.Second)
	if err != nil {
		return nil, err
	}
	return map[string]any{"response": resp}, nil
}

func (s *Server) navigateToNotebook(ctx context.Context, req *mcp.CallToolRequest) (any, error) {
	var input struct {
		NotebookID string `json:"notebook_id"`
	}
	if err := parseArgs(req, &input); err != nil {
		return nil, err
	}
	if input.NotebookID == "" {
		return nil, errors.New("notebook_id is required")
	}

	cli, err := s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	url, err := cli.NavigateToNotebook(ctx, input.NotebookID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":      "ok",
		"notebook_id": input.NotebookID,
		"url":         url,
	}, nil
}

func (s *Server) getDefaultNotebook(_ context.Context, _ *mcp.CallToolRequest) (any, error) {
	return map[string]any{"notebook_id": s.getDefault()}, nil
}

func (s *Server) setDefaultNotebook(_ context.Context, req *mcp.CallToolRequest) (any, error) {
	var input struct {
		NotebookID string `json:"notebook_id"`
	}
	if err := parseArgs(req, &input); err != nil {
		return nil, err
	}
	if input.NotebookID == "" {
		return nil, errors.New("notebook_id is required")
	}

	s.mu.Lock()
	s.defaultNotebook = input.NotebookID
	cli := s.cli
	s.mu.Unlock()

	if cli != nil {
		cli.SetDefaultNotebook(input.NotebookID)
	}
	return map[string]any{
		"status":      "ok",
		"notebook_id": input.NotebookID,
	}, nil
}

func (s *Server) getDefault() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cli != nil {
		return s.cli.DefaultNotebook()
	}
	return s.defaultNotebook
}
