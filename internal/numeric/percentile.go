package numeric

import (
	"math"
	"sort"
)

// PercentileSorted returns the q-quantile (q in [0,1]) of an ascending slice,
// linearly interpolating between order statistics.
func PercentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Defined copies the finite values of xs, in order.
func Defined(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Quartiles returns Q1 and Q3 of the finite values in xs.
func Quartiles(xs []float64) (q1, q3 float64, ok bool) {
	vals := Defined(xs)
	if len(vals) == 0 {
		return 0, 0, false
	}
	sort.Float64s(vals)
	return PercentileSorted(vals, 0.25), PercentileSorted(vals, 0.75), true
}
