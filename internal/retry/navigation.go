// Package retry re-runs multi-step page flows that were interrupted by a
// navigation tearing down the frame under them.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Retryable reports whether err restarts fn. Nil means driver.IsNavigation.
	Retryable func(err error) bool
	// Wait, when set, replaces the fixed Delay between attempts.
	Wait func(ctx context.Context, err error) error
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return driver.IsNavigation(err)
}

func (p Policy) wait(ctx context.Context, err error) error {
	if p.Wait != nil {
		return p.Wait(ctx, err)
	}
	return sleep(ctx, p.Delay)
}

// DefaultPolicy matches the portal's usual settle time after a redirect.
var DefaultPolicy = Policy{MaxAttempts: 30, Delay: time.Second}

// Func is one complete, restartable unit of work. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

// Do runs fn until it succeeds, fails with an error the policy does not
// retry, or exhausts the policy. Each retry starts fn from the
// beginning. Exhaustion is reported as an Unrecoverable error wrapping the
// last failure.
func Do(ctx context.Context, logger *zap.Logger, policy Policy, name string, fn Func) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info("재시도 후 성공", zap.String("step", name), zap.Int("attempt", attempt))
			}
			return nil
		}
		if !policy.retryable(err) {
			return err
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}
		logger.Warn("재시도합니다",
			zap.String("step", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Error(err),
		)
		if err := policy.wait(ctx, err); err != nil {
			return err
		}
	}

	return driver.Unrecoverable(name, fmt.Errorf("gave up after %d attempts: %w", policy.MaxAttempts, lastErr))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
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
