package soc

import (
	"math"

	"cell-pressure/internal/model"
)

// Normalized rescales capacity per (cycle, direction) group by the group's
// maximum capacity. Charge groups rise 0→1, discharge groups fall 1→0.
// Rest rows belong to no group and get an undefined SOC.
type Normalized struct {
	params Params
}

func NewNormalized(p Params) *Normalized {
	return &Normalized{params: p.withDefaults(ModeNormalized)}
}

func (n *Normalized) Mode() Mode { return ModeNormalized }

func (n *Normalized) Params() Params { return n.params }

func (n *Normalized) Estimate(rows []model.Measurement) Segmentation {
	seg := segment(rows, n.params)
	seg.Mode = ModeNormalized
	if len(rows) <= 1 {
		// A lone sample carries no cycle to normalise against.
		return seg
	}

	for i, d := range seg.Direction {
		if !d.Active() {
			seg.SOC[i] = model.Undefined()
		}
	}
	for _, g := range seg.Partition.Groups() {
		NormalizeGroup(rows, g, seg.SOC)
	}
	return seg
}

// NormalizeGroup writes the normalized SOC of one group into dst.
// A group whose maximum capacity is not positive gets SOC 0 throughout.
func NormalizeGroup(rows []model.Measurement, g Group, dst []float64) {
	maxCap := math.Inf(-1)
	for _, r := range g.Rows {
		if rows[r].Capacity > maxCap {
			maxCap = rows[r].Capacity
		}
	}
	for _, r := range g.Rows {
		if !(maxCap > 0) {
			dst[r] = 0
			continue
		}
		frac := rows[r].Capacity / maxCap
		if g.Key.Direction == model.DirectionDischarge {
			frac = 1 - frac
		}
		dst[r] = clamp01(frac)
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
