// Package driver is the boundary between the portal automation and the
// browser. Everything above this package talks to frames through the Page
// and Frame interfaces and receives errors already tagged with a Kind.
package driver

import (
	"context"
	"time"
)

// Page is a single browser tab.
type Page interface {
	// Frames returns every frame currently attached to the page, top level first.
	Frames(ctx context.Context) ([]Frame, error)
	Navigate(ctx context.Context, url string) error
	// SendKeys types keys into whatever element currently has focus.
	SendKeys(ctx context.Context, keys string) error
	Sleep(ctx context.Context, d time.Duration) error
}

// Frame is one browsing context of a page. Selectors are evaluated against
// the frame's own document. Methods that target a selector return an
// ElementNotFound error when it does not match.
type Frame interface {
	ID() string
	URL() string

	// Exists reports whether selector matches. With visible set, the element
	// must also have a layout box and not be hidden by display, visibility or opacity.
	Exists(ctx context.Context, selector string, visible bool) (bool, error)
	// Click dispatches mousedown, mouseup and click on the element.
	Click(ctx context.Context, selector string) error
	// Focus focuses the element and selects its current content.
	Focus(ctx context.Context, selector string) error
	Value(ctx context.Context, selector string) (string, error)
	SetValue(ctx context.Context, selector, value string) error
	// Dispatch fires the named DOM events on the element, in order.
	Dispatch(ctx context.Context, selector string, events ...string) error
	// Text returns the trimmed textContent of the element.
	Text(ctx context.Context, selector string) (string, error)
	// Call invokes a JavaScript function expression with JSON-encoded args
	// and decodes its JSON result into out. out may be nil.
	Call(ctx context.Context, out any, function string, args ...any) error
}
