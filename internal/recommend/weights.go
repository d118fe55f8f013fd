package recommend

import (
	"fmt"
	"math"

	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
)

// Weights are the tuning constants of one engine settings bundle.
type Weights struct {
	// RStar forgives small prerequisite shortfalls.
	RStar float64 `yaml:"r_star"`
	// LStar is the mastery log-odds threshold.
	LStar float64 `yaml:"l_star"`

	WP float64 `yaml:"w_p"`
	WR float64 `yaml:"w_r"`
	WD float64 `yaml:"w_d"`
	WC float64 `yaml:"w_c"`
}

func DefaultWeights() Weights {
	return Weights{
		RStar: 0,
		LStar: 2.2,
		WP:    1,
		WR:    2,
		WD:    0.5,
		WC:    1,
	}
}

func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"r_star": w.RStar,
		"l_star": w.LStar,
		"w_p":    w.WP,
		"w_r":    w.WR,
		"w_d":    w.WD,
		"w_c":    w.WC,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", apperrors.ErrInvalidArgument, name)
		}
	}
	for name, v := range map[string]float64{"w_p": w.WP, "w_r": w.WR, "w_d": w.WD, "w_c": w.WC} {
		if v < 0 {
			return fmt.Errorf("%w: weight %s is negative (%v)", apperrors.ErrInvalidArgument, name, v)
		}
	}
	return nil
}

// Options toggles selection behaviour beyond the weighted blend.
type Options struct {
	// StopOnMastery drops candidates whose relevant KCs are all at or above LStar.
	StopOnMastery bool `yaml:"stop_on_mastery"`
	// Normalize divides each sub-score by its range before blending.
	Normalize bool `yaml:"normalize"`
}
