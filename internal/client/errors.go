package client

import "fmt"

// AuthenticationError means the authentication state could not be determined,
// typically because the page never became ready. Distinct from "login
// required", which EnsureAuthenticated reports as a false result, not an
// error.
type AuthenticationError struct {
	Msg string
	Err error
}

func (e *AuthenticationError) Error() string {
	if e.Err == nil {
		return "authentication error: " + e.Msg
	}
	return fmt.Sprintf("authentication error: %s: %v", e.Msg, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// NavigationError means a notebook navigation did not complete. The session's
// current-notebook state is left unchanged.
type NavigationError struct {
	NotebookID string
	Err        error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to notebook %s failed: %v", e.NotebookID, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ChatError means a message could not be delivered: missing precondition, no
// usable chat input, or both submission methods failing.
type ChatError struct {
	Msg string
	Err error
}

func (e *ChatError) Error() string {
	if e.Err == nil {
		return "chat error: " + e.Msg
	}
	return fmt.Sprintf("chat error: %s: %v", e.Msg, e.Err)
}

func (e *ChatError) Unwrap() error { return e.Err }
