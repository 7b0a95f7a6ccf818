// Package plot renders analysis results as SVG figures.
package plot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/metrics"

	svg "github.com/ajstarks/svgo"
)

type Type string

const (
	VoltagePressure        Type = "voltage_pressure_combined"
	VoltagePressureScatter Type = "voltage_pressure_scatter"
	PressureSOC            Type = "pressure_soc"
	DPDQSOC                Type = "dpdq_soc"
	SOCTrace               Type = "soc_trace"
)

var (
	ErrUnknownType = errors.New("unknown plot type")
	// ErrNoVoltage is returned for the voltage plots when no row has a voltage.
	ErrNoVoltage = errors.New("input has no voltage channel")
)

// Info describes a plot type for listings.
type Info struct {
	Type        Type   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var catalogue = []Info{
	{VoltagePressure, "Voltage and pressure over time", "Voltage and pressure against elapsed time (row index when the input has no timestamps), pressure on a secondary axis."},
	{VoltagePressureScatter, "Voltage and pressure over time (scatter)", "The same axes as the combined plot, drawn as unconnected markers."},
	{PressureSOC, "Pressure vs SOC", "Pressure against state of charge, one series per cycle, charge and discharge panels."},
	{DPDQSOC, "dP/dQ vs SOC", "Smoothed pressure derivative against state of charge, charge and discharge panels."},
	{SOCTrace, "SOC trace", "State of charge against row index with cycle resets marked."},
}

// Types lists the supported plots in display order.
func Types() []Info {
	return append([]Info(nil), catalogue...)
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, info := range catalogue {
		if info.Type == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// FileName is the output path for a plot of input: the input's directory and
// base name with the plot type as suffix.
func FileName(input string, t Type) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), base+"_"+string(t)+".svg")
}

// Render writes the SVG for t to w.
func Render(w io.Writer, t Type, res *analysis.Result) error {
	var (
		fig figure
		err error
	)
	switch t {
	case VoltagePressure:
		fig, err = voltagePressure(res, false)
	case VoltagePressureScatter:
		fig, err = voltagePressure(res, true)
	case PressureSOC:
		fig = bySOC(res, "Pressure vs State of Charge", pressureLabel(res), pressureOf, false)
	case DPDQSOC:
		fig = bySOC(res, "dP/dQ vs State of Charge (smoothed)", "dP/dQ", analysis.DPDQOf, true)
	case SOCTrace:
		fig = socTrace(res)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	fig.draw(svg.New(&buf))
	if _, err := buf.WriteTo(w); err != nil {
		return err
	}
	metrics.PlotsRendered.WithLabelValues(string(t)).Inc()
	return nil
}

// WriteFile renders t into path.
func WriteFile(path string, t Type, res *analysis.Result) error {
	var buf bytes.Buffer
	if err := Render(&buf, t, res); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
