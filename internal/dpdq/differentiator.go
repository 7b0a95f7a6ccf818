// Package dpdq differentiates one signal against another within a single
// (cycle, direction) group, with optional Savitzky-Golay smoothing before and
// after differencing and IQR outlier rejection.
package dpdq

import (
	"fmt"
	"math"

	"cell-pressure/internal/numeric"
)

// DefaultMinStep is the smallest |dx| a derivative is formed over. Smaller
// steps come from stale or repeated capacity samples.
const DefaultMinStep = 1e-4

type Options struct {
	Smooth    bool
	Window    int
	PolyOrder int
	MinStep   float64

	RejectOutliers bool
	IQRMultiplier  float64
}

func DefaultOptions() Options {
	return Options{
		Smooth:         true,
		Window:         numeric.DefaultWindow,
		PolyOrder:      numeric.DefaultPolyOrder,
		MinStep:        DefaultMinStep,
		RejectOutliers: true,
		IQRMultiplier:  numeric.DefaultIQRMultiplier,
	}
}

// Trace is a derivative aligned 1:1 with its input; undefined samples are NaN.
type Trace struct {
	Values []float64
	// PreSmoothed and PostSmoothed report which smoothing passes actually ran.
	PreSmoothed  bool
	PostSmoothed bool
	// Unstable counts samples dropped for a near-zero step in x.
	Unstable int
	// Rejected counts samples dropped as IQR outliers.
	Rejected int
}

func (t Trace) Defined() int {
	n := 0
	for _, v := range t.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

type Differentiator struct {
	opts Options
	sg   *numeric.SavGol
}

func New(opts Options) (*Differentiator, error) {
	if opts.MinStep <= 0 {
		opts.MinStep = DefaultMinStep
	}
	if opts.IQRMultiplier <= 0 {
		opts.IQRMultiplier = numeric.DefaultIQRMultiplier
	}
	d := &Differentiator{opts: opts}
	if opts.Smooth {
		sg, err := numeric.NewSavGol(opts.Window, opts.PolyOrder)
		if err != nil {
			return nil, fmt.Errorf("smoothing filter: %w", err)
		}
		d.sg = sg
	}
	return d, nil
}

func (d *Differentiator) Options() Options { return d.opts }

// Derive computes dy/dx. The first sample is always undefined. Smoothing passes
// that do not fit the data length are skipped.
func (d *Differentiator) Derive(x, y []float64) (Trace, error) {
	if len(x) != len(y) {
		return Trace{}, fmt.Errorf("x and y length mismatch: %d != %d", len(x), len(y))
	}
	n := len(y)
	tr := Trace{Values: make([]float64, n)}
	for i := range tr.Values {
		tr.Values[i] = math.NaN()
	}
	if n <= 1 {
		return tr, nil
	}

	ys := y
	if d.sg != nil && n > d.sg.Window() {
		ys, tr.PreSmoothed = d.sg.Apply(y)
	}

	for k := 1; k < n; k++ {
		dx := x[k] - x[k-1]
		if math.IsNaN(dx) || math.Abs(dx) < d.opts.MinStep {
			tr.Unstable++
			continue
		}
		tr.Values[k] = (ys[k] - ys[k-1]) / dx
	}

	if d.sg != nil && n > d.sg.Window() {
		idx := make([]int, 0, n)
		vals := make([]float64, 0, n)
		for i, v := range tr.Values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				idx = append(idx, i)
				vals = append(vals, v)
			}
		}
		if len(vals) > d.sg.Window() {
			smoothed, _ := d.sg.Apply(vals)
			for j, i := range idx {
				tr.Values[i] = smoothed[j]
			}
			tr.PostSmoothed = true
		}
	}

	if d.opts.RejectOutliers {
		tr.Values, tr.Rejected = numeric.RejectOutliers(tr.Values, d.opts.IQRMultiplier)
	}
	return tr, nil
}
