package devlog

import (
	"fmt"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

// Enable turns on debug output. Off by default.
func Enable() {
	enabled.Store(true)
}

// Printf prints a timestamped debug message to stdout when enabled.
// Format: "15:04:05.000 [Tag] message\n"
func Printf(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", time.Now().Format("15:04:05.000"), msg)
}
