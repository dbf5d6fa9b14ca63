package hometax

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
)

// WaitMainMenu waits until the invoice menu of a logged-in session is visible.
func (p *Portal) WaitMainMenu(ctx context.Context) error {
	if _, err := p.loc.Locate(ctx, mainMenuSelector, p.visible(p.timeouts.Menu)); err != nil {
		return fmt.Errorf("main menu did not appear: %w", err)
	}
	p.logger.Info("로그인 확인: 계산서·영수증·카드 메뉴가 보입니다")
	return nil
}

// OpenSingleIssue opens the single-issue tax invoice form from the menu.
func (p *Portal) OpenSingleIssue(ctx context.Context) error {
	menu, err := p.loc.Locate(ctx, mainMenuSelector, p.opts(p.timeouts.Field))
	if err != nil {
		return err
	}
	if err := menu.Click(ctx); err != nil {
		return err
	}

	item, err := p.loc.Locate(ctx, singleIssueSelector, p.optional(p.timeouts.Field))
	if err != nil {
		return err
	}
	if item != nil {
		if err := item.Click(ctx); err != nil {
			return err
		}
		p.logger.Info("전자(세금)계산서 건별발급 진입")
		return nil
	}

	// The anchor id changes with menu releases; fall back to the label.
	frames, err := p.loc.Page().Frames(ctx)
	if err != nil {
		return err
	}
	for _, frame := range frames {
		var clicked bool
		if err := frame.Call(ctx, &clicked, ClickTextScript, "span", singleIssueMenuLabel); err != nil {
			if driver.IsNavigation(err) {
				continue
			}
			return err
		}
		if clicked {
			p.logger.Info("전자(세금)계산서 건별발급 진입 (텍스트 매칭)")
			return nil
		}
	}
	return driver.NotFound("open single issue", singleIssueSelector)
}
