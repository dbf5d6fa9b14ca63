package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
	"github.com/xkilldash9x/taxgo/internal/browser/field"
	"github.com/xkilldash9x/taxgo/internal/browser/humanoid"
	"github.com/xkilldash9x/taxgo/internal/browser/locator"
	"github.com/xkilldash9x/taxgo/internal/config"
	"github.com/xkilldash9x/taxgo/internal/hometax"
	"github.com/xkilldash9x/taxgo/internal/profile"
	"github.com/xkilldash9x/taxgo/internal/prompt"
)

// browserSession is a launched browser with one automated page.
type browserSession interface {
	Page() driver.Page
	// Done is closed when the browser goes away.
	Done() <-chan struct{}
	Close()
}

type launchFunc func(ctx context.Context, cfg config.BrowserConfig, profileDir string, logger *zap.Logger) (browserSession, error)

type chromeSession struct {
	s *driver.Session
}

func (c chromeSession) Page() driver.Page     { return c.s.Page }
func (c chromeSession) Done() <-chan struct{} { return c.s.Done() }
func (c chromeSession) Close()                { c.s.Close() }

func launchChrome(ctx context.Context, cfg config.BrowserConfig, profileDir string, logger *zap.Logger) (browserSession, error) {
	s, err := driver.Launch(ctx, cfg, profileDir, logger)
	if err != nil {
		return nil, err
	}
	return chromeSession{s: s}, nil
}

// openPortal selects a profile, launches the browser on it and opens the
// start page. The caller owns the returned session.
func (a *app) openPortal(ctx context.Context, profileName string) (browserSession, *hometax.Portal, error) {
	if profileName == "" {
		profileName = a.cfg.Browser.DefaultProfile
	}
	prof, err := profile.Select(ctx, a.cfg.Browser.UserDataParent, profileName, a.prompter, a.out)
	if err != nil {
		return nil, nil, fmt.Errorf("프로필을 선택할 수 없습니다: %w", err)
	}

	sess, err := a.launch(ctx, a.cfg.Browser, prof.Dir, a.logger)
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintln(a.out, "✅ 크롬이 열렸습니다. 종료하려면 Ctrl+C를 누르세요.")

	page := sess.Page()
	if err := page.Navigate(ctx, a.cfg.Browser.StartURL); err != nil {
		sess.Close()
		return nil, nil, err
	}
	return sess, newPortal(page, a.cfg, a.logger), nil
}

func newPortal(page driver.Page, cfg *config.Config, logger *zap.Logger) *hometax.Portal {
	keyboard := humanoid.New(cfg.Humanoid, logger, rand.New(rand.NewSource(time.Now().UnixNano())))
	loc := locator.New(page, logger)
	return hometax.New(loc, field.New(loc, keyboard, logger), keyboard, cfg, logger)
}

// holdBrowser keeps the browser open for manual work until the operator
// presses Enter, the browser is closed, or ctx is cancelled.
func holdBrowser(ctx context.Context, sess browserSession, p prompt.Prompter, logger *zap.Logger, question string) {
	askCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	answered := make(chan struct{})
	go func() {
		defer close(answered)
		if _, err := p.Ask(askCtx, question); err != nil {
			logger.Debug("hold prompt ended", zap.Error(err))
		}
	}()

	select {
	case <-answered:
	case <-sess.Done():
		logger.Info("브라우저가 닫혔습니다")
	}
	cancel()
	<-answered
}
