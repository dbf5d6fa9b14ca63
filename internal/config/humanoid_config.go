// File: internal/config/humanoid_config.go
// HumanoidConfig tunes the keystroke timing model used when typing into the
// portal's inputs. Some of the portal's validators only fire on real key
// events, so values are never pasted in one shot.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// HumanoidConfig holds the typing rhythm parameters, in milliseconds.
type HumanoidConfig struct {
	KeyPauseMeanMs   float64 `mapstructure:"key_pause_mean_ms" yaml:"key_pause_mean_ms"`
	KeyPauseStdDevMs float64 `mapstructure:"key_pause_stddev_ms" yaml:"key_pause_stddev_ms"`
	KeyPauseMinMs    float64 `mapstructure:"key_pause_min_ms" yaml:"key_pause_min_ms"`
	KeyHoldMeanMs    float64 `mapstructure:"key_hold_mean_ms" yaml:"key_hold_mean_ms"`
	KeyHoldStdDevMs  float64 `mapstructure:"key_hold_stddev_ms" yaml:"key_hold_stddev_ms"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("humanoid.key_pause_mean_ms", 50.0)
	v.SetDefault("humanoid.key_pause_stddev_ms", 8.0)
	v.SetDefault("humanoid.key_pause_min_ms", 15.0)
	v.SetDefault("humanoid.key_hold_mean_ms", 0.0)
	v.SetDefault("humanoid.key_hold_stddev_ms", 0.0)
}

// Validate rejects negative timings.
func (h HumanoidConfig) Validate() error {
	if h.KeyPauseMeanMs < 0 || h.KeyPauseStdDevMs < 0 || h.KeyPauseMinMs < 0 {
		return fmt.Errorf("key pause timings must not be negative")
	}
	if h.KeyHoldMeanMs < 0 || h.KeyHoldStdDevMs < 0 {
		return fmt.Errorf("key hold timings must not be negative")
	}
	return nil
}
