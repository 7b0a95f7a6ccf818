package numeric

import "math"

// DefaultIQRMultiplier is wider than the classical 1.5 so that sharp but real
// inflections in dP/dQ survive.
const DefaultIQRMultiplier = 3.0

// IQRBounds returns the fences [Q1-k*IQR, Q3+k*IQR] over the finite values of xs.
func IQRBounds(xs []float64, k float64) (lo, hi float64, ok bool) {
	q1, q3, ok := Quartiles(xs)
	if !ok {
		return 0, 0, false
	}
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr, true
}

// RejectOutliers returns a copy of xs with finite values outside the IQR fences
// replaced by NaN, and the number of values replaced. Non-finite inputs stay NaN.
func RejectOutliers(xs []float64, k float64) ([]float64, int) {
	out := make([]float64, len(xs))
	lo, hi, ok := IQRBounds(xs, k)
	rejected := 0
	for i, v := range xs {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			out[i] = math.NaN()
		case ok && (v < lo || v > hi):
			out[i] = math.NaN()
			rejected++
		default:
			out[i] = v
		}
	}
	return out, rejected
}
