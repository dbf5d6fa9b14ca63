// internal/browser/humanoid/interface.go
package humanoid

import (
	"context"
	"time"
)

// Executor defines the low-level operations the typist needs from a browser.
// driver.Page satisfies it.
type Executor interface {
	Sleep(ctx context.Context, d time.Duration) error
	SendKeys(ctx context.Context, keys string) error
}

// Keyboard types text into the focused element of an Executor.
type Keyboard interface {
	// Type sends text one character at a time. delay is the mean inter-key
	// pause; zero uses the configured default.
	Type(ctx context.Context, exec Executor, text string, delay time.Duration) error
}

// ControlKey defines constants for control characters accepted by SendKeys.
type ControlKey string

const (
	KeyBackspace ControlKey = "\b"
	KeyEnter     ControlKey = "\r"
	KeyTab       ControlKey = "\t"
)
