// Package field writes values into portal form controls the way a person
// would: select the old content, type the new value key by key, then fire
// the DOM events the page's validators listen for.
package field

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
	"github.com/xkilldash9x/taxgo/internal/browser/humanoid"
	"github.com/xkilldash9x/taxgo/internal/browser/locator"
)

// DefaultEvents are dispatched after every write.
var DefaultEvents = []string{"input", "change", "blur"}

// Options controls a single Set call.
type Options struct {
	Locate locator.Options
	// KeyDelay is the mean inter-key pause. Zero uses the typist default.
	KeyDelay time.Duration
	// ExtraEvents are dispatched after DefaultEvents, e.g. "keyup".
	ExtraEvents []string
	// ComponentAPI also pushes the value through the page's WebSquare
	// component, when the page exposes one.
	ComponentAPI bool
	// Normalize enables read-back verification: the read value and the
	// expected value are compared after normalization.
	Normalize Normalizer
	// SettleDelay is waited between typing and read-back.
	SettleDelay time.Duration
}

// Helper sets form fields through a Locator and a Keyboard.
type Helper struct {
	loc      *locator.Locator
	keyboard humanoid.Keyboard
	logger   *zap.Logger
}

// New creates a Helper.
func New(loc *locator.Locator, keyboard humanoid.Keyboard, logger *zap.Logger) *Helper {
	return &Helper{loc: loc, keyboard: keyboard, logger: logger.Named("field")}
}

// Set writes value into the element matched by selector. With Normalize set
// it verifies the result and retypes once on mismatch; a second mismatch is
// returned as a ValidationMismatch error and the field is left as typed.
func (h *Helper) Set(ctx context.Context, selector, value string, opts Options) error {
	el, err := h.loc.Locate(ctx, selector, opts.Locate)
	if err != nil {
		return err
	}
	if el == nil {
		// Optional field that never appeared.
		h.logger.Debug("field not present, skipping", zap.String("selector", selector))
		return nil
	}

	if err := h.write(ctx, el, value, opts); err != nil {
		return err
	}
	if opts.Normalize == nil {
		return nil
	}

	want := opts.Normalize(value)
	got, err := h.readBack(ctx, el, opts)
	if err != nil {
		return err
	}
	if got == want {
		return nil
	}

	h.logger.Warn("입력값 불일치, 다시 입력합니다",
		zap.String("selector", selector),
		zap.String("expected", want),
		zap.String("actual", got),
	)
	if err := h.Clear(ctx, el); err != nil {
		return err
	}
	if err := h.write(ctx, el, value, opts); err != nil {
		return err
	}
	got, err = h.readBack(ctx, el, opts)
	if err != nil {
		return err
	}
	if got != want {
		return driver.Mismatch("set field", selector, want, got)
	}
	return nil
}

func (h *Helper) write(ctx context.Context, el *locator.Element, value string, opts Options) error {
	if err := el.Focus(ctx); err != nil {
		return fmt.Errorf("failed to focus %s: %w", el.Selector, err)
	}
	if err := h.keyboard.Type(ctx, h.loc.Page(), value, opts.KeyDelay); err != nil {
		return fmt.Errorf("failed to type into %s: %w", el.Selector, err)
	}
	if opts.ComponentAPI {
		h.setComponentValue(ctx, el, value)
	}
	events := append(append([]string{}, DefaultEvents...), opts.ExtraEvents...)
	if err := el.Dispatch(ctx, events...); err != nil {
		return fmt.Errorf("failed to dispatch events on %s: %w", el.Selector, err)
	}
	return nil
}

func (h *Helper) readBack(ctx context.Context, el *locator.Element, opts Options) (string, error) {
	if err := h.loc.Page().Sleep(ctx, opts.SettleDelay); err != nil {
		return "", err
	}
	raw, err := el.Value(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read back %s: %w", el.Selector, err)
	}
	return opts.Normalize(raw), nil
}

// Clear empties the element and fires input so the page notices.
func (h *Helper) Clear(ctx context.Context, el *locator.Element) error {
	if err := el.SetValue(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear %s: %w", el.Selector, err)
	}
	return el.Dispatch(ctx, "input")
}

const ComponentSetValueScript = `function(sel, value) {
	const el = document.querySelector(sel);
	if (!el || !el.id || typeof $p === 'undefined' || !$p.getComponentById) return false;
	const comp = $p.getComponentById(el.id);
	if (!comp || typeof comp.setValue !== 'function') return false;
	comp.setValue(value);
	return true;
}`

// setComponentValue is best effort; pages without the component API are fine.
func (h *Helper) setComponentValue(ctx context.Context, el *locator.Element, value string) {
	var applied bool
	if err := el.Frame.Call(ctx, &applied, ComponentSetValueScript, el.Selector, value); err != nil {
		h.logger.Debug("component setValue failed", zap.String("selector", el.Selector), zap.Error(err))
		return
	}
	if !applied {
		h.logger.Debug("component API not available", zap.String("selector", el.Selector))
	}
}

// Select sets a <select> element to the option whose label matches and fires change.
func (h *Helper) Select(ctx context.Context, selector, label string, opts locator.Options) error {
	el, err := h.loc.Locate(ctx, selector, opts)
	if err != nil || el == nil {
		return err
	}
	var ok bool
	if err := el.Frame.Call(ctx, &ok, SelectOptionScript, el.Selector, label); err != nil {
		return err
	}
	if !ok {
		return driver.NotFound("select option", fmt.Sprintf("%s option %q", selector, label))
	}
	return nil
}

const SelectOptionScript = `function(sel, label) {
	const el = document.querySelector(sel);
	if (!el || !el.options) return false;
	const opt = Array.from(el.options).find(o => (o.text || '').trim() === label || o.value === label);
	if (!opt) return false;
	el.value = opt.value;
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// Normalizer maps a raw field value to its comparable form.
type Normalizer func(string) string

// DigitsOnly keeps only ASCII digits, so "010-1234-5678" becomes "01012345678".
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Trimmed compares values without surrounding whitespace.
func Trimmed(s string) string { return strings.TrimSpace(s) }
