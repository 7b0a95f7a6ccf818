// Package soc partitions a cycling run into cycles and derives a State of
// Charge trace for it.
//
// Two estimators are provided because the two are not interchangeable:
// Cumulative integrates signed capacity deltas over the whole run (Ah) and
// never resets its accumulator; Normalized rescales capacity to [0,1]
// independently for every (cycle, direction) group.
package soc

import (
	"fmt"
	"strings"

	"cell-pressure/internal/model"
)

type Mode string

const (
	ModeCumulative Mode = "cumulative"
	ModeNormalized Mode = "normalized"
)

const (
	DefaultCumulativeResetThreshold = 0.001
	DefaultNormalizedResetThreshold = 0.1
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCumulative:
		return ModeCumulative, nil
	case ModeNormalized, "":
		return ModeNormalized, nil
	default:
		return "", fmt.Errorf("unsupported soc mode: %q", s)
	}
}

// DefaultResetThreshold is the capacity drop (Ah) that starts a new cycle.
// The cumulative integrator reacts to small step transitions; the normalized
// view only splits on full resets.
func (m Mode) DefaultResetThreshold() float64 {
	if m == ModeCumulative {
		return DefaultCumulativeResetThreshold
	}
	return DefaultNormalizedResetThreshold
}

// Params are the segmentation thresholds.
// Zero values select the defaults for the estimator's mode.
type Params struct {
	ResetThreshold float64
	RestCurrent    float64
}

func (p Params) withDefaults(m Mode) Params {
	if p.ResetThreshold <= 0 {
		p.ResetThreshold = m.DefaultResetThreshold()
	}
	if p.RestCurrent <= 0 {
		p.RestCurrent = model.DefaultRestCurrent
	}
	return p
}

// Segmentation annotates every input row; all slices have the input's length.
type Segmentation struct {
	Mode      Mode
	CycleID   []int
	Direction []model.Direction
	SOC       []float64
	// Resets counts cycle boundaries (capacity drops larger than the threshold).
	Resets    int
	Partition Partition
}

func (s Segmentation) Len() int { return len(s.SOC) }

// Estimator derives a Segmentation from an ordered measurement slice.
// Implementations are pure: the input is read only and never retained.
type Estimator interface {
	Mode() Mode
	Params() Params
	Estimate(rows []model.Measurement) Segmentation
}

func New(mode Mode, p Params) (Estimator, error) {
	switch mode {
	case ModeCumulative:
		return NewCumulative(p), nil
	case ModeNormalized:
		return NewNormalized(p), nil
	default:
		return nil, fmt.Errorf("unsupported soc mode: %q", mode)
	}
}
