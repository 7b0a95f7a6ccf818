package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/config"
	"cell-pressure/internal/model"
	"cell-pressure/internal/plot"
	"cell-pressure/internal/workbench"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var log = logrus.New()

type argSpec struct {
	Cycles   int     `arg:"--cycles" default:"3" help:"number of charge/discharge cycles"`
	Rows     int     `arg:"--rows" default:"60" help:"rows per charge or discharge step"`
	Capacity float64 `arg:"--capacity" default:"2.5" help:"capacity reached at the end of each step (Ah)"`
	Noise    float64 `arg:"--noise" default:"0.05" help:"standard deviation of pressure noise"`
	Seed     int64   `arg:"--seed" default:"1" help:"random seed"`
	Config   string  `arg:"-c,--config" help:"analysis config (YAML)"`
	Out      string  `arg:"-o,--out" help:"write the synthetic run here (.csv or .xlsx) and analyze that file"`
	Export   string  `arg:"--export" help:"write the annotated export (.csv or .xlsx)"`
	PlotDir  string  `arg:"--plot-dir" help:"render all plots into this directory"`
	LogLevel string  `arg:"-l,--log-level" default:"info" help:"Set the logging level (debug, info, warn, error)"`
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

var header = []string{"Date", "Voltage(V)", "Current(A)", "Capacity(Ah)", "Pressure"}

// Demo:
// - Synthesize a cycling run: charge, a short rest, then discharge per cycle
// - Optionally write it as a cycler-style CSV or XLSX export
// - Analyze it (from the written file when there is one)
// - Print the summary and optionally render every plot
func main() {
	var args argSpec
	arg.MustParse(&args)
	setLogLevel(args.LogLevel)
	if err := run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args argSpec) error {
	if args.Cycles < 1 || args.Rows < 2 {
		return fmt.Errorf("need at least 1 cycle and 2 rows per step")
	}
	cfg, err := config.LoadOrDefault(args.Config)
	if err != nil {
		return err
	}

	rows := synthesize(args)
	log.WithFields(logrus.Fields{"rows": len(rows), "cycles": args.Cycles}).Info("synthetic run generated")

	var res *analysis.Result
	if args.Out != "" {
		if err := writeRun(args.Out, rows); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
		log.WithField("path", args.Out).Info("synthetic run written")
		if res, err = workbench.Analyze(ctx, args.Out, cfg, log); err != nil {
			return err
		}
	} else {
		opts, err := cfg.EngineOptions()
		if err != nil {
			return err
		}
		eng, err := analysis.New(opts, log)
		if err != nil {
			return err
		}
		if res, err = eng.Run(ctx, rows); err != nil {
			return err
		}
	}

	s := res.Summary
	fmt.Printf("mode=%s rows=%d resets=%d charge_cycles=%d discharge_cycles=%d dpdq_defined=%d\n",
		s.Mode, s.Rows, s.Resets, s.ChargeCycles, s.DischargeCycles, s.DefinedDPDQ)
	for _, g := range res.Groups {
		fmt.Printf("cycle=%d dir=%s rows=%d soc=[%.3f, %.3f] dpdq_defined=%d rejected=%d\n",
			g.CycleID, g.Direction, g.Rows, g.SOC.Min, g.SOC.Max, g.Defined, g.Rejected)
	}

	if args.Export != "" {
		if err := analysis.WriteFile(args.Export, res); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args.Export)
	}

	if args.PlotDir != "" {
		if err := os.MkdirAll(args.PlotDir, 0o755); err != nil {
			return err
		}
		for _, info := range plot.Types() {
			path := filepath.Join(args.PlotDir, string(info.Type)+".svg")
			if err := plot.WriteFile(path, info.Type, res); err != nil {
				return fmt.Errorf("plot %s: %w", info.Type, err)
			}
			fmt.Printf("Wrote %s\n", path)
		}
	}
	return nil
}

// synthesize builds a run where pressure swells roughly linearly with
// charge and relaxes on discharge, with a slow drift across cycles.
func synthesize(args argSpec) []model.Measurement {
	rng := rand.New(rand.NewSource(args.Seed))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := args.Capacity / float64(args.Rows-1)

	var out []model.Measurement
	t := start
	pressure := 100.0
	add := func(current, capacity float64) {
		frac := capacity / args.Capacity
		voltage := 3.3 + 0.8*frac
		if current < 0 {
			voltage = 4.1 - 0.8*frac
		}
		out = append(out, model.Measurement{
			Timestamp: t,
			Capacity:  capacity,
			Current:   current,
			Pressure:  pressure + rng.NormFloat64()*args.Noise,
			Voltage:   voltage,
		})
		t = t.Add(time.Minute)
	}

	for c := 0; c < args.Cycles; c++ {
		drift := 0.2 * float64(c)
		for i := 0; i < args.Rows; i++ {
			q := float64(i) * step
			pressure = 100 + drift + 4*q + 0.3*math.Sin(q*math.Pi/args.Capacity)
			add(1.0, q)
		}
		add(0, 0)
		top := pressure
		for i := 0; i < args.Rows; i++ {
			q := float64(i) * step
			pressure = top - 3.8*q
			add(-1.0, q)
		}
		add(0, 0)
	}
	return out
}

func record(m model.Measurement) []string {
	f := func(x float64) string { return strconv.FormatFloat(x, 'f', 5, 64) }
	return []string{m.Timestamp.Format("2006-01-02 15:04:05"), f(m.Voltage), f(m.Current), f(m.Capacity), f(m.Pressure)}
}

func writeRun(path string, rows []model.Measurement) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return writeRunXLSX(path, rows)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, m := range rows {
		if err := w.Write(record(m)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeRunXLSX(path string, rows []model.Measurement) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return err
	}
	for i, m := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{m.Timestamp.Format("2006-01-02 15:04:05"), m.Voltage, m.Current, m.Capacity, m.Pressure}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}
