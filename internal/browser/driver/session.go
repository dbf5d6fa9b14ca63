package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/config"
)

// Session owns a launched Chrome process and its single automated tab.
type Session struct {
	Page *CDPPage

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// chromeFlags returns the command line switches for a headed, profile-bound
// Chrome. A false value removes a switch set by chromedp's defaults.
func chromeFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":                            cfg.Headless,
		"enable-automation":                   false,
		"start-maximized":                     true,
		"no-sandbox":                          true,
		"disable-blink-features":              "AutomationControlled",
		"disk-cache-size":                     "104857600",
		"media-cache-size":                    "52428800",
		"disable-background-networking":       true,
		"disable-background-timer-throttling": true,
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
	}

	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		if key, value, ok := strings.Cut(arg, "="); ok {
			flags[key] = value
			continue
		}
		flags[arg] = true
	}
	return flags
}

// ExecAllocatorOptions builds the chromedp allocator options for cfg, bound
// to the user-data directory profileDir.
func ExecAllocatorOptions(cfg config.BrowserConfig, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.UserDataDir(profileDir))
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	for name, value := range chromeFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// Launch starts Chrome bound to profileDir and attaches to its first tab.
// The returned session stays alive until Close or until ctx is cancelled.
func Launch(ctx context.Context, cfg config.BrowserConfig, profileDir string, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("browser")
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, ExecAllocatorOptions(cfg, profileDir)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	if err := chromedp.Run(tabCtx, ApplyPersona(PersonaFromConfig(cfg), logger)); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to apply browser persona: %w", err)
	}

	s := &Session{
		Page:        NewCDPPage(tabCtx, logger),
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		logger:      logger,
	}
	if err := s.Page.Attach(ctx); err != nil {
		s.Close()
		return nil, err
	}
	logger.Info("브라우저 실행", zap.String("profile", profileDir))
	return s, nil
}

// Done is closed when the browser or its tab goes away.
func (s *Session) Done() <-chan struct{} {
	return s.tabCtx.Done()
}

// Close asks Chrome to exit and then tears down the allocator.
func (s *Session) Close() {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := chromedp.Cancel(s.tabCtx); err != nil {
			s.logger.Debug("browser close returned an error", zap.Error(err))
		}
	}()
	select {
	case <-done:
	case <-closeCtx.Done():
		s.logger.Warn("브라우저 종료 대기 시간 초과")
	}
	s.tabCancel()
	s.allocCancel()
}
