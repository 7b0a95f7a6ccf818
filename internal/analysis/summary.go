package analysis

import (
	"math"

	"cell-pressure/internal/model"
	"cell-pressure/internal/soc"
)

// Summary is the run-level report handed back to front-ends alongside the rows.
type Summary struct {
	Mode    soc.Mode `json:"mode"`
	Rows    int      `json:"rows"`
	Skipped int      `json:"skipped"`

	SOC          Range `json:"soc"`
	ChargeSOC    Range `json:"charge_soc"`
	DischargeSOC Range `json:"discharge_soc"`

	Resets        int     `json:"resets"`
	LargeJumps    int     `json:"large_jumps"`
	JumpThreshold float64 `json:"jump_threshold"`

	ChargeCycles    int `json:"charge_cycles"`
	DischargeCycles int `json:"discharge_cycles"`
	DefinedDPDQ     int `json:"dpdq_defined"`
}

// Summarize computes SOC ranges overall and per direction, the reset count
// and the number of SOC steps larger than jumpThreshold.
func Summarize(seg soc.Segmentation, deriv []float64, jumpThreshold float64) Summary {
	s := Summary{
		Mode:            seg.Mode,
		Rows:            seg.Len(),
		Resets:          seg.Resets,
		JumpThreshold:   jumpThreshold,
		ChargeCycles:    seg.Partition.Count(model.DirectionCharge),
		DischargeCycles: seg.Partition.Count(model.DirectionDischarge),
	}

	var charge, discharge []float64
	for i, v := range seg.SOC {
		switch seg.Direction[i] {
		case model.DirectionCharge:
			charge = append(charge, v)
		case model.DirectionDischarge:
			discharge = append(discharge, v)
		}
	}
	s.SOC = rangeOf(seg.SOC)
	s.ChargeSOC = rangeOf(charge)
	s.DischargeSOC = rangeOf(discharge)
	s.LargeJumps = CountJumps(seg.SOC, jumpThreshold)

	for _, v := range deriv {
		if model.IsDefined(v) {
			s.DefinedDPDQ++
		}
	}
	return s
}

// CountJumps counts adjacent pairs, both defined, whose difference exceeds threshold.
func CountJumps(xs []float64, threshold float64) int {
	n := 0
	for i := 1; i < len(xs); i++ {
		a, b := xs[i-1], xs[i]
		if !model.IsDefined(a) || !model.IsDefined(b) {
			continue
		}
		if math.Abs(b-a) > threshold {
			n++
		}
	}
	return n
}
