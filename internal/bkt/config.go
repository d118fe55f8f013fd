package bkt

import (
	"fmt"
	"math"
	"runtime"

	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/platform/envutil"
)

const (
	defaultEpsilon              = 1e-10
	defaultGuess                = 0.1
	defaultSlip                 = 0.15
	defaultTransit              = 0.1
	defaultPrior                = 0.2
	defaultRelevanceThreshold   = 0.01
	defaultInformationThreshold = 20
)

// Config holds the engine-wide constants. Probabilities here are in probability space;
// helpers convert them to odds.
type Config struct {
	Epsilon float64

	DefaultGuess   float64
	DefaultSlip    float64
	DefaultTransit float64
	DefaultPrior   float64

	// RelevanceThreshold is eta: relevance at or below it is treated as no evidence.
	RelevanceThreshold float64
	// InformationThreshold is M: cells with less accumulated evidence keep their current value.
	InformationThreshold float64
	RemoveDegeneracy     bool

	// Workers bounds parallel knowledge inference during estimation. Zero means GOMAXPROCS.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		Epsilon:              defaultEpsilon,
		DefaultGuess:         defaultGuess,
		DefaultSlip:          defaultSlip,
		DefaultTransit:       defaultTransit,
		DefaultPrior:         defaultPrior,
		RelevanceThreshold:   defaultRelevanceThreshold,
		InformationThreshold: defaultInformationThreshold,
		RemoveDegeneracy:     true,
	}
}

// ConfigFromEnv reads BKT_* overrides on top of DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Epsilon = clampRange(envutil.Float("BKT_EPSILON", cfg.Epsilon), 1e-15, 1e-3)
	cfg.DefaultGuess = clampRange(envutil.Float("BKT_DEFAULT_GUESS", cfg.DefaultGuess), 0.001, 0.499)
	cfg.DefaultSlip = clampRange(envutil.Float("BKT_DEFAULT_SLIP", cfg.DefaultSlip), 0.001, 0.499)
	cfg.DefaultTransit = clampRange(envutil.Float("BKT_DEFAULT_TRANSIT", cfg.DefaultTransit), 0, 0.999)
	cfg.DefaultPrior = clampRange(envutil.Float("BKT_DEFAULT_PRIOR", cfg.DefaultPrior), 0.001, 0.999)
	cfg.RelevanceThreshold = clampRange(envutil.Float("BKT_RELEVANCE_THRESHOLD", cfg.RelevanceThreshold), 0, math.MaxFloat64)
	cfg.InformationThreshold = clampRange(envutil.Float("BKT_INFORMATION_THRESHOLD", cfg.InformationThreshold), 0, math.MaxFloat64)
	cfg.RemoveDegeneracy = envutil.Bool("BKT_REMOVE_DEGENERACY", cfg.RemoveDegeneracy)
	cfg.Workers = envutil.Int("BKT_WORKERS", 0)
	return cfg
}

func (c Config) Validate() error {
	if !(c.Epsilon > 0 && c.Epsilon < 0.5) {
		return fmt.Errorf("%w: epsilon %v not in (0, 0.5)", apperrors.ErrInvalidArgument, c.Epsilon)
	}
	for name, p := range map[string]float64{
		"default_guess": c.DefaultGuess,
		"default_slip":  c.DefaultSlip,
		"default_prior": c.DefaultPrior,
	} {
		if !(p > 0 && p < 1) {
			return fmt.Errorf("%w: %s %v not in (0, 1)", apperrors.ErrInvalidArgument, name, p)
		}
	}
	if !(c.DefaultTransit >= 0 && c.DefaultTransit < 1) {
		return fmt.Errorf("%w: default_transit %v not in [0, 1)", apperrors.ErrInvalidArgument, c.DefaultTransit)
	}
	if c.RelevanceThreshold < 0 || math.IsNaN(c.RelevanceThreshold) {
		return fmt.Errorf("%w: relevance_threshold %v is negative", apperrors.ErrInvalidArgument, c.RelevanceThreshold)
	}
	if c.InformationThreshold < 0 || math.IsNaN(c.InformationThreshold) {
		return fmt.Errorf("%w: information_threshold %v is negative", apperrors.ErrInvalidArgument, c.InformationThreshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d is negative", apperrors.ErrInvalidArgument, c.Workers)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Defaults returns the default guess, slip and transit for a tagged cell, in odds.
func (c Config) Defaults() (guess, slip, transit float64) {
	return Odds(c.DefaultGuess, c.Epsilon, true),
		Odds(c.DefaultSlip, c.Epsilon, true),
		Odds(c.DefaultTransit, c.Epsilon, true)
}

func clampRange(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
