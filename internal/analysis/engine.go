package analysis

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"
	"strings"
	"time"

	"cell-pressure/internal/data"
	"cell-pressure/internal/dpdq"
	"cell-pressure/internal/metrics"
	"cell-pressure/internal/model"
	"cell-pressure/internal/soc"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// XAxis selects the signal pressure is differentiated against.
type XAxis string

const (
	XCapacity XAxis = "capacity"
	XSOC      XAxis = "soc"
)

func ParseXAxis(s string) (XAxis, error) {
	switch XAxis(strings.ToLower(strings.TrimSpace(s))) {
	case XCapacity, "":
		return XCapacity, nil
	case XSOC:
		return XSOC, nil
	default:
		return "", fmt.Errorf("unsupported x axis: %q", s)
	}
}

// DefaultJumpThreshold is the SOC step above which a change counts as a jump.
const DefaultJumpThreshold = 0.01

type Options struct {
	Mode          soc.Mode
	SOC           soc.Params
	DPDQ          dpdq.Options
	XAxis         XAxis
	JumpThreshold float64
	// Parallel fans the per-group differentiation out over GOMAXPROCS workers.
	Parallel bool
}

func DefaultOptions() Options {
	return Options{
		Mode:          soc.ModeNormalized,
		DPDQ:          dpdq.DefaultOptions(),
		XAxis:         XCapacity,
		JumpThreshold: DefaultJumpThreshold,
		Parallel:      true,
	}
}

type Engine struct {
	opts      Options
	estimator soc.Estimator
	diff      *dpdq.Differentiator
	log       logrus.FieldLogger
}

// New builds an engine. A nil logger discards output.
func New(opts Options, log logrus.FieldLogger) (*Engine, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if opts.XAxis == "" {
		opts.XAxis = XCapacity
	}
	if opts.JumpThreshold <= 0 {
		opts.JumpThreshold = DefaultJumpThreshold
	}
	est, err := soc.New(opts.Mode, opts.SOC)
	if err != nil {
		return nil, err
	}
	diff, err := dpdq.New(opts.DPDQ)
	if err != nil {
		return nil, err
	}
	return &Engine{opts: opts, estimator: est, diff: diff, log: log}, nil
}

func (e *Engine) Options() Options { return e.opts }

// Run annotates rows with cycle, direction, SOC and dP/dQ. The input is not
// modified. Groups are independent, so their derivatives may be computed
// concurrently; each group writes only its own row positions.
func (e *Engine) Run(ctx context.Context, rows []model.Measurement) (res *Result, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveAnalysis(string(e.estimator.Mode()), len(rows), started, err)
	}()

	seg := e.estimator.Estimate(rows)
	series := model.SeriesOf(rows)

	x := series.Capacity
	if e.opts.XAxis == XSOC {
		x = seg.SOC
	}

	deriv := make([]float64, len(rows))
	for i := range deriv {
		deriv[i] = math.NaN()
	}

	groups := seg.Partition.Groups()
	stats := make([]GroupStats, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	if e.opts.Parallel {
		g.SetLimit(runtime.GOMAXPROCS(0))
	} else {
		g.SetLimit(1)
	}
	for i, grp := range groups {
		i, grp := i, grp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr, err := e.diff.Derive(grp.Gather(x), grp.Gather(series.Pressure))
			if err != nil {
				return fmt.Errorf("cycle %d %s: %w", grp.Key.CycleID, grp.Key.Direction, err)
			}
			grp.Scatter(deriv, tr.Values)
			stats[i] = newGroupStats(grp, seg.SOC, tr)
			e.log.WithFields(logrus.Fields{
				"cycle":     grp.Key.CycleID,
				"direction": grp.Key.Direction,
				"rows":      grp.Len(),
				"defined":   stats[i].Defined,
				"rejected":  tr.Rejected,
			}).Debug("group differentiated")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.AnnotatedRow, len(rows))
	for i, r := range rows {
		out[i] = model.AnnotatedRow{
			Index:       i,
			Measurement: r,
			CycleID:     seg.CycleID[i],
			Direction:   seg.Direction[i],
			SOC:         seg.SOC[i],
			DPDQ:        deriv[i],
		}
	}

	res = &Result{
		Rows:    out,
		Groups:  stats,
		Summary: Summarize(seg, deriv, e.opts.JumpThreshold),
	}
	e.log.WithFields(logrus.Fields{
		"mode":   seg.Mode,
		"rows":   len(rows),
		"cycles": seg.Resets + 1,
		"groups": len(groups),
	}).Info("analysis complete")
	return res, nil
}

// RunDataset analyzes a prepared dataset and keeps it on the result so the
// export can reproduce the source columns.
func (e *Engine) RunDataset(ctx context.Context, ds *data.Dataset) (*Result, error) {
	res, err := e.Run(ctx, ds.Rows)
	if err != nil {
		return nil, err
	}
	res.Dataset = ds
	res.Summary.Skipped = ds.Skipped
	return res, nil
}
