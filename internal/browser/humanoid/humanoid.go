// internal/browser/humanoid/humanoid.go
package humanoid

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/config"
)

// Humanoid produces keystroke timing that looks like a person typing. The
// portal's field validators listen for key events, so values must arrive
// one key at a time with natural gaps.
type Humanoid struct {
	// mu guards rng. math/rand sources are not safe for concurrent use.
	mu     sync.Mutex
	rng    *rand.Rand
	cfg    config.HumanoidConfig
	logger *zap.Logger
}

var _ Keyboard = (*Humanoid)(nil)

// New creates a Humanoid. A nil rng is seeded from the clock.
func New(cfg config.HumanoidConfig, logger *zap.Logger, rng *rand.Rand) *Humanoid {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Humanoid{
		rng:    rng,
		cfg:    cfg,
		logger: logger.Named("humanoid"),
	}
}

func (h *Humanoid) normFloat64() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.NormFloat64()
}
