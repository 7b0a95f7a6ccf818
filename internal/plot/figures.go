package plot

import (
	"strconv"

	"cell-pressure/internal/analysis"
	"cell-pressure/internal/columns"
	"cell-pressure/internal/model"
	"cell-pressure/internal/soc"
)

func pressureOf(r model.AnnotatedRow) float64 { return r.Pressure }

func pressureLabel(res *analysis.Result) string {
	if res.Dataset != nil {
		if c, ok := res.Dataset.Mapping[columns.Pressure]; ok {
			return "Pressure (" + c.Name + ")"
		}
	}
	return "Pressure"
}

func socLabel(res *analysis.Result) string {
	if res.Summary.Mode == soc.ModeCumulative {
		return "Cumulative charge (Ah)"
	}
	return "State of Charge (SOC)"
}

// timeAxis returns elapsed hours when every row is timestamped, else the row index.
func timeAxis(rows []model.AnnotatedRow) ([]float64, string) {
	x := make([]float64, len(rows))
	timed := len(rows) > 0
	for _, r := range rows {
		if r.Timestamp.IsZero() {
			timed = false
			break
		}
	}
	for i, r := range rows {
		if timed {
			x[i] = r.Timestamp.Sub(rows[0].Timestamp).Hours()
		} else {
			x[i] = float64(r.Index)
		}
	}
	if timed {
		return x, "Elapsed time (h)"
	}
	return x, "Row"
}

// voltagePressure plots voltage and pressure against time on one panel, with
// pressure on a secondary y axis and a shared legend. dots draws markers only.
func voltagePressure(res *analysis.Result, dots bool) (figure, error) {
	const voltageColor, pressureColor = "#1f77b4", "#d62728"
	x, xlabel := timeAxis(res.Rows)
	plabel := pressureLabel(res)
	p := panel{
		xlabel:  xlabel,
		ylabel:  "Voltage (V)",
		y2label: "Pressure",
		ycolor:  voltageColor,
		y2color: pressureColor,
	}
	for i, r := range res.Rows {
		if !r.HasVoltage() || !model.IsDefined(r.Pressure) {
			continue
		}
		p.add("Voltage (V)", x[i], r.Voltage)
		p.add(plabel, x[i], r.Pressure)
	}
	if p.points() == 0 {
		return figure{}, ErrNoVoltage
	}
	volt := p.named("Voltage (V)")
	volt.color, volt.dots = voltageColor, dots
	pres := p.named(plabel)
	pres.color, pres.dots, pres.right = pressureColor, dots, true

	title := "Voltage and Pressure over Time"
	if dots {
		title += " (Scatter Plot)"
	}
	return figure{title: title, cols: 1, panels: []panel{p}}, nil
}

// bySOC plots y against SOC with one series per cycle, charge and discharge
// side by side. The discharge x axis runs from full to empty.
func bySOC(res *analysis.Result, title, ylabel string, y func(model.AnnotatedRow) float64, skipUndefined bool) figure {
	xlabel := socLabel(res)
	charge := panel{title: "Charging", xlabel: xlabel, ylabel: ylabel}
	discharge := panel{title: "Discharging", xlabel: xlabel, ylabel: ylabel, reverseX: true}

	for _, r := range res.Rows {
		var p *panel
		switch r.Direction {
		case model.DirectionCharge:
			p = &charge
		case model.DirectionDischarge:
			p = &discharge
		default:
			continue
		}
		yv := y(r)
		if skipUndefined && (!model.IsDefined(r.SOC) || !model.IsDefined(yv)) {
			continue
		}
		p.add("cycle "+strconv.Itoa(r.CycleID), r.SOC, yv)
	}
	return figure{title: title, cols: 2, panels: []panel{charge, discharge}}
}

func socTrace(res *analysis.Result) figure {
	p := panel{title: "Cycles: " + strconv.Itoa(res.Summary.Resets+1), xlabel: "Row", ylabel: socLabel(res)}
	for i, r := range res.Rows {
		if i > 0 && r.CycleID != res.Rows[i-1].CycleID {
			p.marks = append(p.marks, float64(r.Index))
		}
		p.add("", float64(r.Index), r.SOC)
	}
	if len(p.series) > 0 {
		p.series[0].color = "#2ca02c"
	}
	return figure{title: "State of Charge", cols: 1, panels: []panel{p}}
}
