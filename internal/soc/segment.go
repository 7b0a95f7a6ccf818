package soc

import "cell-pressure/internal/model"

// isReset reports a capacity drop larger than threshold between adjacent rows.
// The comparison is strict so that noise within the threshold never splits a cycle.
func isReset(prevCap, capacity, threshold float64) bool {
	return capacity < prevCap-threshold
}

// segment assigns cycle ids and directions. Cycle ids start at 0 and count the
// resets seen so far. Fewer than two rows yield an empty partition.
func segment(rows []model.Measurement, p Params) Segmentation {
	n := len(rows)
	seg := Segmentation{
		CycleID:   make([]int, n),
		Direction: make([]model.Direction, n),
		SOC:       make([]float64, n),
	}
	cycle := 0
	for i, r := range rows {
		if i > 0 && isReset(rows[i-1].Capacity, r.Capacity, p.ResetThreshold) {
			cycle++
		}
		seg.CycleID[i] = cycle
		seg.Direction[i] = model.DirectionFromCurrent(r.Current, p.RestCurrent)
	}
	seg.Resets = cycle
	if n <= 1 {
		// a lone sample forms no cycle
		seg.Partition = BuildPartition(nil, nil)
		return seg
	}
	seg.Partition = BuildPartition(seg.CycleID, seg.Direction)
	return seg
}
