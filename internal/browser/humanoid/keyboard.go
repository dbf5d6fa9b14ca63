package humanoid

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Type sends text rune by rune with a human-like inter-key delay (IKD).
// Typos are never simulated: the typed values are passwords and registration
// numbers that must arrive exactly.
func (h *Humanoid) Type(ctx context.Context, exec Executor, text string, delay time.Duration) error {
	runes := []rune(text)
	h.logger.Debug("typing", zap.Int("chars", len(runes)), zap.Duration("mean_delay", delay))

	for i, r := range runes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := exec.SendKeys(ctx, string(r)); err != nil {
			return fmt.Errorf("humanoid: failed to send key %d of %d: %w", i+1, len(runes), err)
		}
		if hold := h.keyHoldDuration(); hold > 0 {
			if err := exec.Sleep(ctx, hold); err != nil {
				return err
			}
		}
		// No pause after the final key.
		if i == len(runes)-1 {
			break
		}
		if err := exec.Sleep(ctx, h.keyPause(delay)); err != nil {
			return err
		}
	}
	return nil
}

// keyPause draws the gap before the next key from a normal distribution
// around mean, clamped to the configured minimum.
func (h *Humanoid) keyPause(mean time.Duration) time.Duration {
	meanMs := float64(mean) / float64(time.Millisecond)
	if meanMs <= 0 {
		meanMs = h.cfg.KeyPauseMeanMs
	}
	minMs := math.Min(h.cfg.KeyPauseMinMs, meanMs)

	delay := h.normFloat64()*h.cfg.KeyPauseStdDevMs + meanMs
	return time.Duration(math.Max(minMs, delay) * float64(time.Millisecond))
}

// keyHoldDuration is the dwell time after a key press. Zero disables it.
func (h *Humanoid) keyHoldDuration() time.Duration {
	if h.cfg.KeyHoldMeanMs <= 0 {
		return 0
	}
	delay := h.normFloat64()*h.cfg.KeyHoldStdDevMs + h.cfg.KeyHoldMeanMs
	if delay < 20.0 {
		delay = 20.0
	}
	return time.Duration(delay * float64(time.Millisecond))
}
