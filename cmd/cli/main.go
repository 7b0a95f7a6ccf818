package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/columns"
	"cell-pressure/internal/config"
	"cell-pressure/internal/data"
	"cell-pressure/internal/plot"
	"cell-pressure/internal/workbench"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
)

var (
	log     = logrus.New()
	version = "<not set>"
)

type analyzeCmd struct {
	Input    string   `arg:"positional,required" help:"CSV, XLSX or JSON export of the cycling run"`
	Config   string   `arg:"-c,--config" help:"analysis config (YAML)"`
	Mode     string   `arg:"--mode" help:"SOC mode: cumulative or normalized"`
	XAxis    string   `arg:"--x-axis" help:"differentiate pressure against capacity or soc"`
	Sheet    string   `arg:"--sheet" help:"worksheet of an Excel input (default: first sheet)"`
	NoSmooth bool     `arg:"--no-smooth" help:"disable Savitzky-Golay smoothing"`
	Out      string   `arg:"-o,--out" help:"annotated export (.csv or .xlsx); default <input>_with_SOC.xlsx"`
	Plots    []string `arg:"--plot,separate" help:"also render this plot type next to the input (repeatable)"`
}

type plotCmd struct {
	Type   string   `arg:"positional,required" help:"voltage_pressure_combined, voltage_pressure_scatter, pressure_soc, dpdq_soc or soc_trace"`
	Inputs []string `arg:"positional,required" help:"input file; more than one requires a merge"`
	Config string   `arg:"-c,--config" help:"analysis config (YAML)"`
	OutDir string   `arg:"--out-dir" help:"write the SVG here instead of next to the input"`
}

type columnsCmd struct {
	Input  string `arg:"positional,required"`
	Config string `arg:"-c,--config" help:"analysis config (YAML) with column overrides"`
	Sheet  string `arg:"--sheet"`
}

type mergeCmd struct {
	Inputs []string `arg:"positional,required"`
}

type argSpec struct {
	Analyze  *analyzeCmd `arg:"subcommand:analyze" help:"derive cycles, SOC and dP/dQ and write an annotated export"`
	Plot     *plotCmd    `arg:"subcommand:plot" help:"render a diagnostic SVG plot"`
	Columns  *columnsCmd `arg:"subcommand:columns" help:"list input columns and how they resolve"`
	Merge    *mergeCmd   `arg:"subcommand:merge" help:"merge a cycler export with a pressure log (not implemented)"`
	LogLevel string      `arg:"-l,--log-level" default:"info" help:"Set the logging level (debug, info, warn, error)"`
}

func (argSpec) Version() string {
	return version
}

func procArgs() (argSpec, *arg.Parser) {
	var args argSpec
	p := arg.MustParse(&args)
	return args, p
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

func main() {
	if err := runMain(); err != nil {
		var missing *columns.MissingColumnError
		if errors.As(err, &missing) {
			log.WithField("available", missing.Available).Error(missing.Error())
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func runMain() error {
	log.SetOutput(os.Stderr)
	args, p := procArgs()
	setLogLevel(args.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case args.Analyze != nil:
		return cmdAnalyze(ctx, args.Analyze)
	case args.Plot != nil:
		return cmdPlot(ctx, args.Plot)
	case args.Columns != nil:
		return cmdColumns(args.Columns)
	case args.Merge != nil:
		return cmdMerge(ctx, args.Merge)
	default:
		p.WriteHelp(os.Stdout)
		os.Exit(2)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func cmdAnalyze(ctx context.Context, a *analyzeCmd) error {
	base, err := loadConfig(a.Config)
	if err != nil {
		return err
	}
	ov := config.Overrides{Mode: a.Mode, XAxis: a.XAxis, Sheet: a.Sheet}
	if a.NoSmooth {
		off := false
		ov.Smooth = &off
	}
	cfg := config.Merge(base, ov)
	if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := workbench.Analyze(ctx, a.Input, cfg, log)
	if err != nil {
		return err
	}

	out := a.Out
	if out == "" {
		out = siblingPath(a.Input, "_with_SOC.xlsx")
	}
	if err := analysis.WriteFile(out, res); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	printSummary(res)
	fmt.Printf("\nSaved to: %s\n", out)

	for _, name := range a.Plots {
		typ, err := plot.ParseType(name)
		if err != nil {
			return err
		}
		path := plot.FileName(a.Input, typ)
		if err := plot.WriteFile(path, typ, res); err != nil {
			return fmt.Errorf("plot %s: %w", typ, err)
		}
		fmt.Printf("Plot saved: %s\n", path)
	}
	return nil
}

func cmdPlot(ctx context.Context, a *plotCmd) error {
	cfg, err := loadConfig(a.Config)
	if err != nil {
		return err
	}
	var wb workbench.Workbench = workbench.NewSession(cfg, log)
	for _, in := range a.Inputs {
		if wb, err = wb.SelectInput(kindOf(in), in); err != nil {
			return err
		}
	}
	res, err := wb.Plot(ctx, workbench.PlotRequest{Type: plot.Type(a.Type), OutputDir: a.OutDir})
	if errors.Is(err, workbench.ErrMergeRequired) {
		return fmt.Errorf("%w (got %d inputs)", err, len(a.Inputs))
	}
	if err != nil {
		return err
	}
	printSummary(res.Result)
	fmt.Printf("\nPlot saved: %s\n", res.Path)
	return nil
}

func cmdColumns(a *columnsCmd) error {
	cfg, err := loadConfig(a.Config)
	if err != nil {
		return err
	}
	sheet := a.Sheet
	if sheet == "" {
		sheet = cfg.Sheet
	}
	t, err := data.LoadTable(a.Input, data.LoadOptions{Sheet: sheet})
	if err != nil {
		return err
	}
	fmt.Printf("Columns loaded from file: %d\n", len(t.Header))
	fmt.Printf("Data shape: (%d, %d)\n", t.Len(), len(t.Header))
	for i, h := range t.Header {
		fmt.Printf("%d: '%s'\n", i, h)
	}

	overrides, err := cfg.ColumnOverrides()
	if err != nil {
		return err
	}
	m, err := columns.Resolve(t.Header, overrides)
	if err != nil {
		return err
	}
	fmt.Println("\nUsing columns:")
	for _, f := range append(append([]columns.Field{}, columns.Required...), columns.Optional...) {
		if c, ok := m[f]; ok {
			fmt.Printf("  %-10s '%s'\n", string(f)+":", c.Name)
		}
	}
	return nil
}

func cmdMerge(ctx context.Context, a *mergeCmd) error {
	var (
		wb  workbench.Workbench = workbench.NewSession(nil, log)
		err error
	)
	for _, in := range a.Inputs {
		if wb, err = wb.SelectInput(kindOf(in), in); err != nil {
			return err
		}
	}
	return wb.Merge(ctx)
}

// kindOf picks the input slot from the extension: workbooks fill the Excel
// slot, everything else the CSV slot.
func kindOf(path string) workbench.InputKind {
	if f, err := data.FormatOf(path); err == nil && f == data.FormatXLSX {
		return workbench.InputExcel
	}
	return workbench.InputCSV
}

func siblingPath(input, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), base+suffix)
}

func printSummary(res *analysis.Result) {
	s := res.Summary
	unit := ""
	if s.Mode == "cumulative" {
		unit = " Ah"
	}
	fmt.Printf("Rows analysed: %d (skipped %d)\n", s.Rows, s.Skipped)
	fmt.Printf("SOC mode: %s\n", s.Mode)
	printRange("SOC range", s.SOC, unit)
	printRange("SOC during charging", s.ChargeSOC, unit)
	printRange("SOC during discharging", s.DischargeSOC, unit)
	fmt.Printf("Found %d capacity resets (step transitions)\n", s.Resets)
	fmt.Printf("Number of SOC changes > %g: %d\n", s.JumpThreshold, s.LargeJumps)
	fmt.Printf("Total charging cycles: %d\n", s.ChargeCycles)
	fmt.Printf("Total discharging cycles: %d\n", s.DischargeCycles)
	fmt.Printf("dP/dQ defined points: %d\n", s.DefinedDPDQ)

	ch := res.Channels()
	if !ch.Start.IsZero() {
		fmt.Printf("Time range: %s to %s\n", ch.Start.Format("2006-01-02 15:04:05"), ch.End.Format("2006-01-02 15:04:05"))
	}
	if !ch.Voltage.Empty() {
		fmt.Printf("Voltage range: %.3fV to %.3fV\n", ch.Voltage.Min, ch.Voltage.Max)
	}
	printRange("Pressure range", ch.Pressure, "")

	if len(res.Groups) > 0 {
		fmt.Printf("\n%-6s %-10s %-6s %-8s %-8s %-8s %-8s\n", "cycle", "direction", "rows", "soc_min", "soc_max", "defined", "rejected")
		for _, g := range res.Groups {
			fmt.Printf("%-6d %-10s %-6d %-8.4f %-8.4f %-8d %-8d\n",
				g.CycleID, g.Direction, g.Rows, g.SOC.Min, g.SOC.Max, g.Defined, g.Rejected)
		}
	}
}

func printRange(label string, r analysis.Range, unit string) {
	if r.Empty() {
		fmt.Printf("%s: n/a\n", label)
		return
	}
	fmt.Printf("%s: %.4f to %.4f%s\n", label, r.Min, r.Max, unit)
}
