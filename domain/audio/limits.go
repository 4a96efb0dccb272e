package audio

import "fmt"

// Limits bound what a single request may ask for. They are reloadable at runtime.
type Limits struct {
	MinStretchFactor    float64 `json:"minStretchFactor" yaml:"min_stretch_factor"`
	MaxStretchFactor    float64 `json:"maxStretchFactor" yaml:"max_stretch_factor"`
	MaxTargetDurationMs int     `json:"maxTargetDurationMs" yaml:"max_target_duration_ms"`
}

// DefaultLimits returns the stock bounds: factor in [0.8, 1.25], at most three minutes of output.
func DefaultLimits() Limits {
	return Limits{
		MinStretchFactor:    0.8,
		MaxStretchFactor:    1.25,
		MaxTargetDurationMs: 3 * 60 * 1000,
	}
}

// Validate checks the limits are internally consistent
func (l Limits) Validate() error {
	if l.MinStretchFactor <= 0 {
		return fmt.Errorf("min stretch factor must be positive, got %g", l.MinStretchFactor)
	}
	if l.MaxStretchFactor < l.MinStretchFactor {
		return fmt.Errorf("max stretch factor %g is below min %g", l.MaxStretchFactor, l.MinStretchFactor)
	}
	if l.MaxTargetDurationMs <= 0 {
		return fmt.Errorf("max target duration must be positive, got %d", l.MaxTargetDurationMs)
	}
	return nil
}
