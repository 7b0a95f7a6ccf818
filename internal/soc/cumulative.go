package soc

import "cell-pressure/internal/model"

// Cumulative integrates signed capacity deltas across the whole run.
//
// At a step transition (capacity reset) the reference capacity drops to 0 so
// the new step's capacity counts from zero, but the accumulator itself carries
// on: the trace is a running integral in Ah, not a per-cycle bounded SOC.
type Cumulative struct {
	params Params
}

func NewCumulative(p Params) *Cumulative {
	return &Cumulative{params: p.withDefaults(ModeCumulative)}
}

func (c *Cumulative) Mode() Mode { return ModeCumulative }

func (c *Cumulative) Params() Params { return c.params }

func (c *Cumulative) Estimate(rows []model.Measurement) Segmentation {
	seg := segment(rows, c.params)
	seg.Mode = ModeCumulative
	if len(rows) == 0 {
		return seg
	}

	charge := 0.0
	prevCap := rows[0].Capacity
	seg.SOC[0] = 0
	for i := 1; i < len(rows); i++ {
		capacity := rows[i].Capacity
		if isReset(rows[i-1].Capacity, capacity, c.params.ResetThreshold) {
			prevCap = 0
		}
		delta := capacity - prevCap
		switch seg.Direction[i] {
		case model.DirectionCharge:
			charge += delta
		case model.DirectionDischarge:
			charge -= delta
		}
		prevCap = capacity
		seg.SOC[i] = charge
	}
	return seg
}
