package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/config"
)

// hideWebdriverScript runs before any page script so the portal sees a
// regular browser.
const hideWebdriverScript = `Object.defineProperty(Navigator.prototype, 'webdriver', {
  get: () => undefined,
  configurable: true
});`

// Persona is the locale the tab presents to the portal.
type Persona struct {
	Locale   string
	Timezone string
}

// PersonaFromConfig reads the persona settings of cfg.
func PersonaFromConfig(cfg config.BrowserConfig) Persona {
	return Persona{Locale: cfg.Locale, Timezone: cfg.Timezone}
}

// acceptLanguage renders the Accept-Language header for a locale such as
// ko-KR, falling back to the bare language at lower weight.
func (p Persona) acceptLanguage() string {
	if p.Locale == "" {
		return ""
	}
	lang, _, ok := strings.Cut(p.Locale, "-")
	if !ok || lang == "" {
		return p.Locale
	}
	return fmt.Sprintf("%s,%s;q=0.9", p.Locale, lang)
}

// ApplyPersona builds the CDP actions that install the persona on a tab.
// Overrides for empty fields are skipped.
func ApplyPersona(p Persona, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying browser persona",
		zap.String("locale", p.Locale),
		zap.String("timezone", p.Timezone),
	)

	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriverScript).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject webdriver script: %w", err)
			}
			return nil
		}),
	}
	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	if p.Locale != "" {
		tasks = append(tasks,
			emulation.SetLocaleOverride().WithLocale(p.Locale),
			network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": p.acceptLanguage()}),
		)
	}
	return tasks
}
