package model

import (
	"math"
	"time"
)

// Measurement is one sample of a cycling run.
// Units:
// - Capacity: Ah, monotonic within a step, resets to ~0 at step transitions
// - Current: A, >0 charge, <0 discharge
// - Pressure: sensor units, passed through untouched
// - Voltage: V, NaN when the source has no voltage channel
//
// Slices of Measurement are ordered by time; derivatives depend on adjacency.
type Measurement struct {
	Timestamp time.Time
	Capacity  float64
	Current   float64
	Pressure  float64
	Voltage   float64
}

func (m Measurement) HasVoltage() bool {
	return !math.IsNaN(m.Voltage)
}

// Series holds the columns of a measurement slice as parallel float slices.
// It is the shape the numeric packages consume.
type Series struct {
	Capacity []float64
	Current  []float64
	Pressure []float64
	Voltage  []float64
}

func SeriesOf(rows []Measurement) Series {
	s := Series{
		Capacity: make([]float64, len(rows)),
		Current:  make([]float64, len(rows)),
		Pressure: make([]float64, len(rows)),
		Voltage:  make([]float64, len(rows)),
	}
	for i, r := range rows {
		s.Capacity[i] = r.Capacity
		s.Current[i] = r.Current
		s.Pressure[i] = r.Pressure
		s.Voltage[i] = r.Voltage
	}
	return s
}

// Undefined is the marker for derived values that have no meaningful value
// (first derivative sample, near-zero denominators, rejected outliers, rest rows).
func Undefined() float64 { return math.NaN() }

func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
