// File: internal/mocks/browser.go
package mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FakePage is an in-memory driver.Page. Frames hold FakeElements keyed by
// selector; typing goes to the element last focused through Focus.
type FakePage struct {
	mu      sync.Mutex
	frames  []*FakeFrame
	focused *FakeElement

	SentKeys    []string
	Sleeps      []time.Duration
	NavigatedTo []string
	// FramesErr, when set, is consulted on every Frames call (1-based).
	FramesErr func(call int) error
	// RealSleep makes Sleep actually wait.
	RealSleep bool

	framesCalls int
}

var _ driver.Page = (*FakePage)(nil)

// NewFakePage creates a page with the given frames attached in order.
func NewFakePage(frames ...*FakeFrame) *FakePage {
	p := &FakePage{}
	for _, f := range frames {
		p.AddFrame(f)
	}
	return p
}

// AddFrame attaches f to the page.
func (p *FakePage) AddFrame(f *FakeFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f.page = p
	p.frames = append(p.frames, f)
}

// FramesCalls reports how many times Frames was called.
func (p *FakePage) FramesCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.framesCalls
}

func (p *FakePage) Frames(ctx context.Context) ([]driver.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.framesCalls++
	if p.FramesErr != nil {
		if err := p.FramesErr(p.framesCalls); err != nil {
			return nil, err
		}
	}
	out := make([]driver.Frame, 0, len(p.frames))
	for _, f := range p.frames {
		out = append(out, f)
	}
	return out, nil
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NavigatedTo = append(p.NavigatedTo, url)
	return nil
}

// SendKeys applies keys to the focused element. "\b" deletes one rune.
func (p *FakePage) SendKeys(ctx context.Context, keys string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SentKeys = append(p.SentKeys, keys)
	if p.focused != nil {
		p.focused.typeKeys(keys)
	}
	return nil
}

func (p *FakePage) Sleep(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.Sleeps = append(p.Sleeps, d)
	real := p.RealSleep
	p.mu.Unlock()
	if !real {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Typed returns every key sent so far, concatenated.
func (p *FakePage) Typed() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.SentKeys, "")
}

// CallHandler answers a Frame.Call for one function source.
type CallHandler func(args []any) (any, error)

// FakeFrame is an in-memory driver.Frame.
type FakeFrame struct {
	mu       sync.Mutex
	page     *FakePage
	id       string
	url      string
	elements map[string]*FakeElement
	handlers map[string]CallHandler

	// Detached makes every call fail with a navigation race.
	Detached bool
	// ExistsErr, when set, can fail Exists for a selector.
	ExistsErr func(selector string) error
	// OpErr, when set, can fail any element operation (click, focus, ...).
	OpErr func(op, selector string) error
	// Calls records the function sources passed to Call.
	Calls []string
}

var _ driver.Frame = (*FakeFrame)(nil)

// NewFakeFrame creates an empty frame.
func NewFakeFrame(id, url string) *FakeFrame {
	return &FakeFrame{
		id:       id,
		url:      url,
		elements: make(map[string]*FakeElement),
		handlers: make(map[string]CallHandler),
	}
}

// Add registers el under selector and returns it.
func (f *FakeFrame) Add(selector string, el *FakeElement) *FakeElement {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[selector] = el
	return el
}

// Remove deletes the element registered under selector.
func (f *FakeFrame) Remove(selector string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.elements, selector)
}

// Element returns the element registered under selector, or nil.
func (f *FakeFrame) Element(selector string) *FakeElement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elements[selector]
}

// Handle registers the answer for Call(function, ...).
func (f *FakeFrame) Handle(function string, h CallHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[function] = h
}

func (f *FakeFrame) ID() string  { return f.id }
func (f *FakeFrame) URL() string { return f.url }

func (f *FakeFrame) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.Detached {
		return driver.Classify(op, errors.New("Execution context was destroyed, most likely because of a navigation."))
	}
	return nil
}

func (f *FakeFrame) lookup(ctx context.Context, op, selector string) (*FakeElement, error) {
	if err := f.check(ctx, op); err != nil {
		return nil, err
	}
	if f.OpErr != nil {
		if err := f.OpErr(op, selector); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	el := f.elements[selector]
	f.mu.Unlock()
	if el == nil || !el.present() {
		return nil, driver.NotFound(op, selector)
	}
	return el, nil
}

func (f *FakeFrame) Exists(ctx context.Context, selector string, visible bool) (bool, error) {
	if err := f.check(ctx, "exists"); err != nil {
		return false, err
	}
	if f.ExistsErr != nil {
		if err := f.ExistsErr(selector); err != nil {
			return false, err
		}
	}
	f.mu.Lock()
	el := f.elements[selector]
	f.mu.Unlock()
	if el == nil || !el.present() {
		return false, nil
	}
	return !visible || !el.isHidden(), nil
}

func (f *FakeFrame) Click(ctx context.Context, selector string) error {
	el, err := f.lookup(ctx, "click", selector)
	if err != nil {
		return err
	}
	el.mu.Lock()
	el.Clicks++
	onClick := el.OnClick
	el.mu.Unlock()
	if onClick != nil {
		onClick()
	}
	return nil
}

func (f *FakeFrame) Focus(ctx context.Context, selector string) error {
	el, err := f.lookup(ctx, "focus", selector)
	if err != nil {
		return err
	}
	el.mu.Lock()
	el.selectedAll = true
	el.Focused++
	el.mu.Unlock()
	if f.page != nil {
		f.page.mu.Lock()
		f.page.focused = el
		f.page.mu.Unlock()
	}
	return nil
}

func (f *FakeFrame) Value(ctx context.Context, selector string) (string, error) {
	el, err := f.lookup(ctx, "read value", selector)
	if err != nil {
		return "", err
	}
	return el.GetValue(), nil
}

func (f *FakeFrame) SetValue(ctx context.Context, selector, value string) error {
	el, err := f.lookup(ctx, "set value", selector)
	if err != nil {
		return err
	}
	el.mu.Lock()
	el.Value = value
	el.mu.Unlock()
	return nil
}

func (f *FakeFrame) Dispatch(ctx context.Context, selector string, events ...string) error {
	el, err := f.lookup(ctx, "dispatch", selector)
	if err != nil {
		return err
	}
	el.mu.Lock()
	el.Events = append(el.Events, events...)
	el.mu.Unlock()
	return nil
}

func (f *FakeFrame) Text(ctx context.Context, selector string) (string, error) {
	el, err := f.lookup(ctx, "read text", selector)
	if err != nil {
		return "", err
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	return strings.TrimSpace(el.TextContent), nil
}

// Call runs the handler registered for function. Results are passed through
// a JSON round trip so decoding matches the real driver.
func (f *FakeFrame) Call(ctx context.Context, out any, function string, args ...any) error {
	if err := f.check(ctx, "evaluate"); err != nil {
		return err
	}
	f.mu.Lock()
	f.Calls = append(f.Calls, function)
	h := f.handlers[function]
	f.mu.Unlock()
	if h == nil {
		return driver.Classify("evaluate", fmt.Errorf("fake frame %s has no handler for script", f.id))
	}
	res, err := h(args)
	if err != nil {
		return driver.Classify("evaluate", err)
	}
	if out == nil {
		return nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// FakeElement is a form control or plain element.
type FakeElement struct {
	mu          sync.Mutex
	Value       string
	TextContent string
	Hidden      bool
	// AppearAt delays the element's existence until the given time.
	AppearAt time.Time
	// DropKeys discards the next N typed keys, simulating lost keystrokes.
	DropKeys int
	OnClick  func()

	Events      []string
	Clicks      int
	Focused     int
	selectedAll bool
}

func (e *FakeElement) present() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.AppearAt.IsZero() || !time.Now().Before(e.AppearAt)
}

func (e *FakeElement) isHidden() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Hidden
}

// GetValue returns the current value.
func (e *FakeElement) GetValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Value
}

// ClickCount returns how many times the element was clicked.
func (e *FakeElement) ClickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Clicks
}

// EventLog returns a copy of the dispatched events.
func (e *FakeElement) EventLog() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.Events...)
}

func (e *FakeElement) typeKeys(keys string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selectedAll {
		e.Value = ""
		e.selectedAll = false
	}
	for _, r := range keys {
		if e.DropKeys > 0 {
			e.DropKeys--
			continue
		}
		if r == '\b' {
			runes := []rune(e.Value)
			if len(runes) > 0 {
				e.Value = string(runes[:len(runes)-1])
			}
			continue
		}
		e.Value += string(r)
	}
}
