package browser

import "fmt"

// BrowserError means no usable browser session could be obtained. The caller
// must treat the session as absent; a later Start may succeed.
type BrowserError struct {
	Op  string
	Err error
}

func (e *BrowserError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("browser error: %s", e.Op)
	}
	return fmt.Sprintf("browser error: %s: %v", e.Op, e.Err)
}

func (e *BrowserError) Unwrap() error {
	return e.Err
}
