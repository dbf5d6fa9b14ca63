package driver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CDPPage implements Page on top of a chromedp tab context. It tracks the
// default execution context of every frame from runtime events, so a frame
// query can be evaluated in that frame's own document.
type CDPPage struct {
	ctx    context.Context // the chromedp tab context
	logger *zap.Logger
	// runActionsFunc executes CDP actions; tests replace it.
	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error

	mu       sync.RWMutex
	contexts map[cdp.FrameID]runtime.ExecutionContextID
}

var _ Page = (*CDPPage)(nil)

// NewCDPPage wraps a chromedp tab context. Call Attach before use.
func NewCDPPage(tabCtx context.Context, logger *zap.Logger) *CDPPage {
	p := &CDPPage{
		ctx:      tabCtx,
		logger:   logger.Named("page"),
		contexts: make(map[cdp.FrameID]runtime.ExecutionContextID),
	}
	p.runActionsFunc = p.runActions
	return p
}

// Attach subscribes to target events and makes the browser re-announce
// existing execution contexts so the registry starts complete.
func (p *CDPPage) Attach(ctx context.Context) error {
	chromedp.ListenTarget(p.ctx, p.handleTargetEvent)
	chromedp.ListenBrowser(p.ctx, p.handleBrowserEvent)

	err := p.runActionsFunc(ctx,
		runtime.Disable(),
		runtime.Enable(),
		page.Enable(),
	)
	if err != nil {
		return fmt.Errorf("failed to enable runtime events: %w", Classify("attach", err))
	}
	return nil
}

// runActions runs actions on the tab while honouring the deadline and
// cancellation of the operational ctx.
func (p *CDPPage) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *CDPPage) handleTargetEvent(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventExecutionContextCreated:
		p.registerContext(e.Context)
	case *runtime.EventExecutionContextDestroyed:
		p.forgetContext(e.ExecutionContextID)
	case *runtime.EventExecutionContextsCleared:
		p.mu.Lock()
		p.contexts = make(map[cdp.FrameID]runtime.ExecutionContextID)
		p.mu.Unlock()
	case *page.EventJavascriptDialogOpening:
		p.logger.Info("대화상자 자동 수락", zap.String("type", string(e.Type)), zap.String("message", e.Message))
		// Handling the dialog from inside the listener would deadlock the event loop.
		go func() {
			if err := chromedp.Run(p.ctx, page.HandleJavaScriptDialog(true)); err != nil {
				p.logger.Warn("대화상자 처리 실패", zap.Error(err))
			}
		}()
	}
}

func (p *CDPPage) handleBrowserEvent(ev interface{}) {
	e, ok := ev.(*target.EventTargetCreated)
	if !ok || e.TargetInfo == nil || e.TargetInfo.Type != "page" {
		return
	}
	c := chromedp.FromContext(p.ctx)
	if c == nil || c.Target == nil || e.TargetInfo.OpenerID != c.Target.TargetID {
		return
	}
	popupID := e.TargetInfo.TargetID
	p.logger.Info("팝업 창 닫기", zap.String("url", e.TargetInfo.URL))
	go func() {
		ctx, cancel := context.WithTimeout(p.ctx, 3*time.Second)
		defer cancel()
		err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			return target.CloseTarget(popupID).Do(ctx)
		}))
		if err != nil {
			p.logger.Debug("팝업 닫기 실패", zap.Error(err))
		}
	}()
}

type contextAuxData struct {
	FrameID   cdp.FrameID `json:"frameId"`
	IsDefault bool        `json:"isDefault"`
}

func (p *CDPPage) registerContext(desc *runtime.ExecutionContextDescription) {
	if desc == nil || len(desc.AuxData) == 0 {
		return
	}
	var aux contextAuxData
	if err := json.Unmarshal([]byte(desc.AuxData), &aux); err != nil || !aux.IsDefault || aux.FrameID == "" {
		return
	}
	p.mu.Lock()
	p.contexts[aux.FrameID] = desc.ID
	p.mu.Unlock()
}

func (p *CDPPage) forgetContext(id runtime.ExecutionContextID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for frameID, ctxID := range p.contexts {
		if ctxID == id {
			delete(p.contexts, frameID)
		}
	}
}

// contextFor returns the default execution context of frameID. A frame
// without a registered context is mid-navigation.
func (p *CDPPage) contextFor(frameID cdp.FrameID) (runtime.ExecutionContextID, error) {
	p.mu.RLock()
	id, ok := p.contexts[frameID]
	p.mu.RUnlock()
	if !ok {
		return 0, &Error{
			Kind: KindNavigationRace,
			Op:   "resolve frame",
			Err:  fmt.Errorf("no execution context registered for frame %s", frameID),
		}
	}
	return id, nil
}

// Frames flattens the frame tree depth first, top-level frame first.
func (p *CDPPage) Frames(ctx context.Context) ([]Frame, error) {
	var tree *page.FrameTree
	err := p.runActionsFunc(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, Classify("frame tree", err)
	}

	var frames []Frame
	var walk func(t *page.FrameTree)
	walk = func(t *page.FrameTree) {
		if t == nil || t.Frame == nil {
			return
		}
		frames = append(frames, &cdpFrame{page: p, id: t.Frame.ID, url: t.Frame.URL, name: t.Frame.Name})
		for _, child := range t.ChildFrames {
			walk(child)
		}
	}
	walk(tree)
	return frames, nil
}

// Navigate loads url in the tab.
func (p *CDPPage) Navigate(ctx context.Context, url string) error {
	return Classify("navigate", p.runActionsFunc(ctx, chromedp.Navigate(url)))
}

// SendKeys dispatches keyboard events to the focused element.
func (p *CDPPage) SendKeys(ctx context.Context, keys string) error {
	timeout := 10 * time.Second
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.runActionsFunc(opCtx, chromedp.KeyEvent(keys))
	if err != nil && opCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return fmt.Errorf("send keys timed out after %v: %w", timeout, opCtx.Err())
	}
	return Classify("send keys", err)
}

// Sleep pauses for d unless ctx ends first.
func (p *CDPPage) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return p.runActionsFunc(ctx, chromedp.Sleep(d))
}

// evaluate runs expression in the given execution context and decodes the result.
func (p *CDPPage) evaluate(ctx context.Context, ctxID runtime.ExecutionContextID, expression string, out any) error {
	var (
		res *runtime.RemoteObject
		exc *runtime.ExceptionDetails
	)
	err := p.runActionsFunc(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		res, exc, err = runtime.Evaluate(expression).
			WithContextID(ctxID).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		return err
	}))
	if err != nil {
		return err
	}
	if exc != nil {
		return exc
	}
	if out == nil || res == nil || len(res.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Value), out); err != nil {
		return fmt.Errorf("failed to decode evaluation result: %w", err)
	}
	return nil
}

// jsonEncode encodes a value for embedding as a JavaScript literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func buildCall(function string, args []any) string {
	encoded := make([]string, len(args))
	for i, a := range args {
		encoded[i] = jsonEncode(a)
	}
	return fmt.Sprintf("(%s)(%s)", function, strings.Join(encoded, ", "))
}
