// Package locator finds elements across every frame of a page. The portal
// renders its forms inside nested iframes that are rebuilt on navigation, so
// each lookup scans all frames and tolerates frames that disappear mid-scan.
package locator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
)

const (
	DefaultTimeout  = 8 * time.Second
	DefaultInterval = 200 * time.Millisecond
)

// Options controls a single locate call.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
	// Visible requires a rendered, non-hidden element.
	Visible bool
	// Optional turns a timeout into a nil result instead of an ElementNotFound error.
	Optional bool
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// Element is a match inside one frame. It borrows the frame from the page
// and is only valid until the frame navigates; re-locate after any step
// that may trigger navigation.
type Element struct {
	Frame    driver.Frame
	Selector string
}

func (e *Element) Click(ctx context.Context) error { return e.Frame.Click(ctx, e.Selector) }
func (e *Element) Focus(ctx context.Context) error { return e.Frame.Focus(ctx, e.Selector) }

func (e *Element) Value(ctx context.Context) (string, error) {
	return e.Frame.Value(ctx, e.Selector)
}

func (e *Element) SetValue(ctx context.Context, value string) error {
	return e.Frame.SetValue(ctx, e.Selector, value)
}

func (e *Element) Dispatch(ctx context.Context, events ...string) error {
	return e.Frame.Dispatch(ctx, e.Selector, events...)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.Frame.Text(ctx, e.Selector)
}

// Locator scans a page's frames for selectors.
type Locator struct {
	page   driver.Page
	logger *zap.Logger
}

// New creates a Locator for page.
func New(page driver.Page, logger *zap.Logger) *Locator {
	return &Locator{page: page, logger: logger.Named("locator")}
}

// Page returns the page being scanned.
func (l *Locator) Page() driver.Page { return l.page }

// Locate waits for selector to match in any frame.
func (l *Locator) Locate(ctx context.Context, selector string, opts Options) (*Element, error) {
	return l.LocateAny(ctx, []string{selector}, opts)
}

// LocateAny waits for any of selectors to match in any frame. Within a poll,
// frames are scanned in page order and selectors in the given order.
func (l *Locator) LocateAny(ctx context.Context, selectors []string, opts Options) (*Element, error) {
	opts = opts.withDefaults()
	deadline := time.Now().Add(opts.Timeout)

	for {
		el, err := l.scan(ctx, selectors, opts.Visible)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := opts.Interval
		if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if opts.Optional {
		l.logger.Debug("optional element not found", zap.Strings("selectors", selectors), zap.Duration("timeout", opts.Timeout))
		return nil, nil
	}
	return nil, driver.NotFound("locate", selectors[0])
}

// scan performs one pass over every frame. Navigation races skip the
// affected frame; any other error ends the locate call.
func (l *Locator) scan(ctx context.Context, selectors []string, visible bool) (*Element, error) {
	frames, err := l.page.Frames(ctx)
	if err != nil {
		if driver.IsNavigation(err) {
			l.logger.Debug("frame tree unavailable during navigation", zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	for _, frame := range frames {
		for _, sel := range selectors {
			found, err := frame.Exists(ctx, sel, visible)
			if err != nil {
				if driver.IsNavigation(err) {
					l.logger.Debug("frame went away during scan", zap.String("frame", frame.ID()), zap.Error(err))
					break
				}
				return nil, err
			}
			if found {
				return &Element{Frame: frame, Selector: sel}, nil
			}
		}
	}
	return nil, nil
}

// Exists reports whether selector currently matches in any frame, without waiting.
func (l *Locator) Exists(ctx context.Context, selector string, visible bool) (bool, error) {
	el, err := l.scan(ctx, []string{selector}, visible)
	return el != nil, err
}
