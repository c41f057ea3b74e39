package baseline

import (
	"fmt"

	"github.com/careahead/vitalscope/internal/vitals"
)

// Config holds the calibration constants of the baseline engine. It is
// loaded from the baseline: section of the YAML config.
type Config struct {
	// Window is how many trailing days (excluding today) feed a baseline.
	Window int `yaml:"window"`

	LowPercentile        float64 `yaml:"low_percentile"`
	HighPercentile       float64 `yaml:"high_percentile"`
	MinPercentileSamples int     `yaml:"min_percentile_samples"`

	InBandPenalty float64 `yaml:"in_band_penalty"`
	PenaltySlope  float64 `yaml:"penalty_slope"`
	MaxPenalty    float64 `yaml:"max_penalty"`

	// Heart-rate deviation is treated as the stronger signal.
	HeartRateWeight float64 `yaml:"heart_rate_weight"`
	BreathingWeight float64 `yaml:"breathing_weight"`

	HeartRateScaleFloor float64 `yaml:"heart_rate_scale_floor"`
	BreathingScaleFloor float64 `yaml:"breathing_scale_floor"`

	HeartRateStableStdDev float64 `yaml:"heart_rate_stable_std_dev"`
	BreathingStableStdDev float64 `yaml:"breathing_stable_std_dev"`
}

// DefaultConfig returns the calibration the app shipped with.
func DefaultConfig() Config {
	return Config{
		Window:                60,
		LowPercentile:         0.15,
		HighPercentile:        0.85,
		MinPercentileSamples:  10,
		InBandPenalty:         6,
		PenaltySlope:          35,
		MaxPenalty:            99,
		HeartRateWeight:       0.6,
		BreathingWeight:       0.4,
		HeartRateScaleFloor:   5,
		BreathingScaleFloor:   1.5,
		HeartRateStableStdDev: 6,
		BreathingStableStdDev: 2,
	}
}

// Validate rejects calibrations that would break the engine's invariants.
func (c Config) Validate() error {
	if c.Window < 1 {
		return fmt.Errorf("baseline window must be positive, got %d", c.Window)
	}
	if c.LowPercentile < 0 || c.HighPercentile > 1 || c.LowPercentile > c.HighPercentile {
		return fmt.Errorf("baseline percentiles must satisfy 0 <= low <= high <= 1, got %.2f/%.2f", c.LowPercentile, c.HighPercentile)
	}
	if c.MinPercentileSamples < 2 {
		return fmt.Errorf("min_percentile_samples must be at least 2, got %d", c.MinPercentileSamples)
	}
	if c.InBandPenalty <= 0 || c.InBandPenalty > c.MaxPenalty {
		return fmt.Errorf("in_band_penalty must be in (0, max_penalty], got %.2f", c.InBandPenalty)
	}
	if c.MaxPenalty <= 0 || c.MaxPenalty > 99 {
		return fmt.Errorf("max_penalty must be in (0, 99], got %.2f", c.MaxPenalty)
	}
	if c.PenaltySlope <= 0 {
		return fmt.Errorf("penalty_slope must be positive, got %.2f", c.PenaltySlope)
	}
	if c.HeartRateWeight < 0 || c.BreathingWeight < 0 || c.HeartRateWeight+c.BreathingWeight == 0 {
		return fmt.Errorf("risk weights must be non-negative and not both zero")
	}
	if c.HeartRateScaleFloor <= 0 || c.BreathingScaleFloor <= 0 {
		return fmt.Errorf("scale floors must be positive")
	}
	return nil
}

func (c Config) scaleFloor(metric vitals.Metric) float64 {
	if metric == vitals.BreathingRate {
		return c.BreathingScaleFloor
	}
	return c.HeartRateScaleFloor
}

func (c Config) stableStdDev(metric vitals.Metric) float64 {
	if metric == vitals.BreathingRate {
		return c.BreathingStableStdDev
	}
	return c.HeartRateStableStdDev
}
