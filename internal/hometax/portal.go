// Package hometax implements the individual page steps of the Hometax
// tax-invoice flow: login, certificate selection, menu navigation and the
// single-issue form. Every step locates its elements through the frame
// scanner and writes through the field helper; none of them keeps element
// references across calls.
package hometax

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
	"github.com/xkilldash9x/taxgo/internal/browser/field"
	"github.com/xkilldash9x/taxgo/internal/browser/humanoid"
	"github.com/xkilldash9x/taxgo/internal/browser/locator"
	"github.com/xkilldash9x/taxgo/internal/config"
)

// waits are the fixed, page-specific timings of the portal. They are not
// configurable; tests shorten them.
type waits struct {
	loggedIn      time.Duration
	loginSettle   time.Duration
	driveMenu     time.Duration
	driveRetry    time.Duration
	driveList     time.Duration
	driveSettle   time.Duration
	certTable     time.Duration
	certPoll      time.Duration
	password      time.Duration
	passwordRetry time.Duration
	confirmSettle time.Duration
	bizNoSettle   time.Duration
	branchPopup   time.Duration
	branchTable   time.Duration
	confirmLocate time.Duration
	confirmPoll   time.Duration
	confirmWindow time.Duration
}

func defaultWaits() waits {
	return waits{
		loggedIn:      4 * time.Second,
		loginSettle:   time.Second,
		driveMenu:     3 * time.Second,
		driveRetry:    500 * time.Millisecond,
		driveList:     3 * time.Second,
		driveSettle:   time.Second,
		certTable:     5 * time.Second,
		certPoll:      300 * time.Millisecond,
		password:      20 * time.Second,
		passwordRetry: 500 * time.Millisecond,
		confirmSettle: time.Second,
		bizNoSettle:   300 * time.Millisecond,
		branchPopup:   8 * time.Second,
		branchTable:   8 * time.Second,
		confirmLocate: 2 * time.Second,
		confirmPoll:   300 * time.Millisecond,
		confirmWindow: 3 * time.Second,
	}
}

// Portal drives one Hometax tab.
type Portal struct {
	loc      *locator.Locator
	fields   *field.Helper
	keyboard humanoid.Keyboard
	cert     config.CertificateConfig
	timeouts config.TimeoutConfig
	waits    waits
	logger   *zap.Logger
}

// New creates a Portal.
func New(loc *locator.Locator, fields *field.Helper, keyboard humanoid.Keyboard, cfg *config.Config, logger *zap.Logger) *Portal {
	return &Portal{
		loc:      loc,
		fields:   fields,
		keyboard: keyboard,
		cert:     cfg.Certificate,
		timeouts: cfg.Timeouts,
		waits:    defaultWaits(),
		logger:   logger.Named("hometax"),
	}
}

// Pause waits d on the page, honoring ctx.
func (p *Portal) Pause(ctx context.Context, d time.Duration) error {
	return p.loc.Page().Sleep(ctx, d)
}

func (p *Portal) opts(timeout time.Duration) locator.Options {
	return locator.Options{Timeout: timeout, Interval: p.timeouts.PollInterval}
}

func (p *Portal) optional(timeout time.Duration) locator.Options {
	o := p.opts(timeout)
	o.Optional = true
	return o
}

func (p *Portal) visible(timeout time.Duration) locator.Options {
	o := p.opts(timeout)
	o.Visible = true
	return o
}

// outerHTML reads the markup of selector inside frame.
func outerHTML(ctx context.Context, frame driver.Frame, selector string) (string, error) {
	var markup *string
	if err := frame.Call(ctx, &markup, OuterHTMLScript, selector); err != nil {
		return "", err
	}
	if markup == nil {
		return "", driver.NotFound("read html", selector)
	}
	return *markup, nil
}

// readGrid reads and parses the table at selector inside frame.
func readGrid(ctx context.Context, frame driver.Frame, selector string) (grid, error) {
	markup, err := outerHTML(ctx, frame, selector)
	if err != nil {
		return grid{}, err
	}
	return parseGrid(markup)
}

// clickNth clicks the idx-th element matching selector inside frame.
func clickNth(ctx context.Context, frame driver.Frame, selector string, idx int, inner string) error {
	var ok bool
	if err := frame.Call(ctx, &ok, ClickNthScript, selector, idx, inner); err != nil {
		return err
	}
	if !ok {
		return driver.NotFound("click row", fmt.Sprintf("%s [%d]", selector, idx))
	}
	return nil
}

// controlValue reads a control's displayed value, "-" when empty or absent.
func controlValue(ctx context.Context, frame driver.Frame, selector string) string {
	var value *string
	if err := frame.Call(ctx, &value, ControlValueScript, selector); err != nil || value == nil {
		return "-"
	}
	return dashIfEmpty(*value)
}
