package analysis

import (
	"math"
	"sort"
	"time"

	"cell-pressure/internal/data"
	"cell-pressure/internal/dpdq"
	"cell-pressure/internal/model"
	"cell-pressure/internal/soc"
)

// Result is the output of one analysis: every input row annotated, per-group
// statistics and the run summary.
type Result struct {
	Rows    []model.AnnotatedRow
	Groups  []GroupStats
	Summary Summary

	// Dataset is set when the run started from a loaded file.
	Dataset *data.Dataset
}

// GroupStats describes one (cycle, direction) group.
type GroupStats struct {
	CycleID   int             `json:"cycle_id"`
	Direction model.Direction `json:"direction"`
	Rows      int             `json:"rows"`
	SOC       Range           `json:"soc"`
	Defined   int             `json:"dpdq_defined"`
	Unstable  int             `json:"dpdq_unstable"`
	Rejected  int             `json:"dpdq_rejected"`
	Smoothed  bool            `json:"smoothed"`
}

func newGroupStats(g soc.Group, socs []float64, tr dpdq.Trace) GroupStats {
	return GroupStats{
		CycleID:   g.Key.CycleID,
		Direction: g.Key.Direction,
		Rows:      g.Len(),
		SOC:       rangeOf(g.Gather(socs)),
		Defined:   tr.Defined(),
		Unstable:  tr.Unstable,
		Rejected:  tr.Rejected,
		Smoothed:  tr.PreSmoothed || tr.PostSmoothed,
	}
}

// ByDirection returns the groups in one direction ordered by cycle id.
func (r *Result) ByDirection(d model.Direction) []GroupStats {
	var out []GroupStats
	for _, g := range r.Groups {
		if g.Direction == d {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleID < out[j].CycleID })
	return out
}

// Column extracts one derived column in row order.
func (r *Result) Column(f func(model.AnnotatedRow) float64) []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = f(row)
	}
	return out
}

// ChannelRanges spans the raw channels of a run.
type ChannelRanges struct {
	// Start and End are zero when no row carries a timestamp.
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Voltage  Range     `json:"voltage"`
	Pressure Range     `json:"pressure"`
}

// Channels returns the time, voltage and pressure ranges over the rows.
func (r *Result) Channels() ChannelRanges {
	var out ChannelRanges
	for _, row := range r.Rows {
		ts := row.Timestamp
		if ts.IsZero() {
			continue
		}
		if out.Start.IsZero() || ts.Before(out.Start) {
			out.Start = ts
		}
		if ts.After(out.End) {
			out.End = ts
		}
	}
	out.Voltage = rangeOf(r.Column(func(row model.AnnotatedRow) float64 { return row.Voltage }))
	out.Pressure = rangeOf(r.Column(func(row model.AnnotatedRow) float64 { return row.Pressure }))
	return out
}

func SOCOf(r model.AnnotatedRow) float64  { return r.SOC }
func DPDQOf(r model.AnnotatedRow) float64 { return r.DPDQ }

// Range is the min/max over the defined values of a selection.
// Count is 0 when the selection has no defined values.
type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

func (r Range) Empty() bool { return r.Count == 0 }

func rangeOf(xs []float64) Range {
	out := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range xs {
		if !model.IsDefined(v) {
			continue
		}
		out.Count++
		if v < out.Min {
			out.Min = v
		}
		if v > out.Max {
			out.Max = v
		}
	}
	if out.Count == 0 {
		return Range{}
	}
	return out
}
