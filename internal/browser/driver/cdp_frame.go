package driver

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
)

// cdpFrame is a frame snapshot from the last frame-tree walk. Every call
// resolves the frame's current execution context, so a frame that navigated
// since the walk fails with a NavigationRace error instead of querying a
// stale document.
type cdpFrame struct {
	page *CDPPage
	id   cdp.FrameID
	url  string
	name string
}

var _ Frame = (*cdpFrame)(nil)

func (f *cdpFrame) ID() string  { return string(f.id) }
func (f *cdpFrame) URL() string { return f.url }

func (f *cdpFrame) Call(ctx context.Context, out any, function string, args ...any) error {
	ctxID, err := f.page.contextFor(f.id)
	if err != nil {
		return err
	}
	return Classify("evaluate", f.page.evaluate(ctx, ctxID, buildCall(function, args), out))
}

func (f *cdpFrame) Exists(ctx context.Context, selector string, visible bool) (bool, error) {
	var found bool
	if err := f.Call(ctx, &found, existsScript, selector, visible); err != nil {
		return false, err
	}
	return found, nil
}

// run invokes a script that returns false when the selector is absent.
func (f *cdpFrame) run(ctx context.Context, op, script, selector string, args ...any) error {
	var ok bool
	if err := f.Call(ctx, &ok, script, append([]any{selector}, args...)...); err != nil {
		return err
	}
	if !ok {
		return NotFound(op, selector)
	}
	return nil
}

func (f *cdpFrame) Click(ctx context.Context, selector string) error {
	return f.run(ctx, "click", clickScript, selector)
}

func (f *cdpFrame) Focus(ctx context.Context, selector string) error {
	return f.run(ctx, "focus", focusScript, selector)
}

func (f *cdpFrame) SetValue(ctx context.Context, selector, value string) error {
	return f.run(ctx, "set value", setValueScript, selector, value)
}

func (f *cdpFrame) Dispatch(ctx context.Context, selector string, events ...string) error {
	if len(events) == 0 {
		return nil
	}
	return f.run(ctx, "dispatch", dispatchScript, selector, events)
}

func (f *cdpFrame) Value(ctx context.Context, selector string) (string, error) {
	return f.readString(ctx, "read value", valueScript, selector)
}

func (f *cdpFrame) Text(ctx context.Context, selector string) (string, error) {
	return f.readString(ctx, "read text", textScript, selector)
}

func (f *cdpFrame) readString(ctx context.Context, op, script, selector string) (string, error) {
	var v *string
	if err := f.Call(ctx, &v, script, selector); err != nil {
		return "", err
	}
	if v == nil {
		return "", NotFound(op, selector)
	}
	return *v, nil
}
