package hometax

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
)

// ErrConfirmationTimeout is returned when the operator did not confirm the
// issue dialog in time.
var ErrConfirmationTimeout = errors.New("user confirmation not detected within timeout")

// AwaitUserConfirmation waits for the operator to press the confirm button
// of the issue dialog. It never clicks the button itself: a click listener
// flags the real click, and the dialog disappearing counts as confirmation.
func (p *Portal) AwaitUserConfirmation(ctx context.Context) error {
	deadline := time.Now().Add(p.timeouts.UserConfirm)
	p.logger.Info("확인(인증 화면 이동) 버튼을 직접 눌러주세요", zap.Duration("timeout", p.timeouts.UserConfirm))

	for time.Now().Before(deadline) {
		el, err := p.loc.Locate(ctx, userConfirmButtonSelector, p.optional(p.waits.confirmLocate))
		if err != nil {
			return err
		}
		if el == nil {
			p.logger.Info("확인 팝업이 닫힌 것으로 감지했습니다")
			return nil
		}

		var attached bool
		if err := el.Frame.Call(ctx, &attached, WatchClickScript, userConfirmButtonSelector); err != nil {
			if !driver.IsNavigation(err) {
				return err
			}
		}
		if !attached {
			// Gone or navigating between locate and attach; re-check after a poll.
			if err := p.Pause(ctx, p.waits.confirmPoll); err != nil {
				return err
			}
			continue
		}

		clicked, err := p.pollClicked(ctx, el.Frame)
		if err != nil {
			return err
		}
		if clicked {
			p.logger.Info("확인 버튼 사용자 클릭 감지")
			return nil
		}
	}

	p.logger.Warn("확인 버튼 클릭을 지정한 시간 안에 감지하지 못했습니다")
	return ErrConfirmationTimeout
}

// pollClicked checks the click flag every confirmPoll for confirmWindow.
// A navigation race ends the window early so the caller re-locates.
func (p *Portal) pollClicked(ctx context.Context, frame driver.Frame) (bool, error) {
	polls := int(p.waits.confirmWindow / p.waits.confirmPoll)
	for i := 0; i < polls; i++ {
		var clicked bool
		if err := frame.Call(ctx, &clicked, ClickedScript, userConfirmButtonSelector); err != nil {
			if driver.IsNavigation(err) {
				return false, p.Pause(ctx, p.waits.confirmPoll)
			}
			return false, err
		}
		if clicked {
			return true, nil
		}
		if err := p.Pause(ctx, p.waits.confirmPoll); err != nil {
			return false, err
		}
	}
	return false, nil
}
