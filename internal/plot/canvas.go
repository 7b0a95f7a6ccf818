package plot

import (
	"math"
	"strconv"

	"cell-pressure/internal/model"

	svg "github.com/ajstarks/svgo"
)

const (
	panelW  = 640
	panelH  = 440
	titleH  = 50
	marginL = 80
	marginR = 30
	// right margin of panels with a secondary y axis
	marginR2 = 80
	marginT = 40
	marginB = 60
	ticks   = 5
	// legends longer than this are truncated with a count of the remainder.
	maxLegend = 10
)

const (
	fontStyle   = "font-family:sans-serif;fill:#222"
	titleStyle  = "text-anchor:middle;font-size:20px;font-weight:bold;" + fontStyle
	headStyle   = "text-anchor:middle;font-size:15px;font-weight:bold;" + fontStyle
	labelStyle  = "text-anchor:middle;font-size:13px;" + fontStyle
	tickStyle   = "font-size:11px;" + fontStyle
	frameStyle  = "fill:none;stroke:#444;stroke-width:1"
	gridStyle   = "stroke:#ddd;stroke-width:1"
	markStyle   = "stroke:#999;stroke-width:1;stroke-dasharray:4,3"
	legendStyle = "font-size:11px;" + fontStyle
)

var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

type series struct {
	label string
	color string
	x, y  []float64
	// right plots the series against the secondary y axis.
	right bool
	// dots draws unconnected markers instead of a line.
	dots bool
}

type panel struct {
	title  string
	xlabel string
	ylabel string
	// y2label names the secondary y axis, used by series with right set.
	y2label string
	// ycolor and y2color tint the axis labels; empty means the default ink.
	ycolor, y2color string
	series          []series
	// reverseX draws the x axis from max (left) to min (right).
	reverseX bool
	// marks are vertical dashed lines at these x positions.
	marks []float64
	index map[string]int
}

// add appends a point to the series named label, creating it on first use.
func (p *panel) add(label string, x, y float64) {
	s := p.named(label)
	s.x = append(s.x, x)
	s.y = append(s.y, y)
}

// named returns the series called label, creating it on first use. The
// pointer is only valid until the next series is created.
func (p *panel) named(label string) *series {
	if p.index == nil {
		p.index = map[string]int{}
	}
	i, ok := p.index[label]
	if !ok {
		i = len(p.series)
		p.index[label] = i
		p.series = append(p.series, series{label: label})
	}
	return &p.series[i]
}

func (p *panel) hasRight() bool {
	for _, s := range p.series {
		if s.right {
			return true
		}
	}
	return false
}

func (p *panel) points() int {
	n := 0
	for _, s := range p.series {
		for i := range s.x {
			if model.IsDefined(s.x[i]) && model.IsDefined(s.y[i]) {
				n++
			}
		}
	}
	return n
}

type figure struct {
	title  string
	cols   int
	panels []panel
}

func (f figure) draw(canvas *svg.SVG) {
	cols := f.cols
	if cols < 1 {
		cols = 1
	}
	rows := (len(f.panels) + cols - 1) / cols
	width, height := cols*panelW, titleH+rows*panelH

	canvas.Start(width, height)
	canvas.Title(f.title)
	canvas.Rect(0, 0, width, height, "fill:white")
	canvas.Text(width/2, 32, f.title, titleStyle)
	for i := range f.panels {
		f.panels[i].draw(canvas, (i%cols)*panelW, titleH+(i/cols)*panelH)
	}
	canvas.End()
}

func (p *panel) draw(canvas *svg.SVG, ox, oy int) {
	dual := p.hasRight()
	right := marginR
	if dual {
		right = marginR2
	}
	left, top := ox+marginL, oy+marginT
	w, h := panelW-marginL-right, panelH-marginT-marginB

	if p.title != "" {
		canvas.Text(ox+panelW/2, oy+24, p.title, headStyle)
	}
	canvas.Text(left+w/2, top+h+45, p.xlabel, labelStyle)
	axisLabel(canvas, ox+20, top+h/2, p.ylabel, p.ycolor)
	if dual {
		axisLabel(canvas, ox+panelW-16, top+h/2, p.y2label, p.y2color)
	}

	var xe, ye, ye2 extent
	for _, s := range p.series {
		for i := range s.x {
			if model.IsDefined(s.x[i]) && model.IsDefined(s.y[i]) {
				xe.add(s.x[i])
				if s.right {
					ye2.add(s.y[i])
				} else {
					ye.add(s.y[i])
				}
			}
		}
	}
	if xe.n == 0 {
		canvas.Rect(left, top, w, h, frameStyle)
		canvas.Text(left+w/2, top+h/2, "no data", labelStyle)
		return
	}
	if ye.n == 0 {
		ye = ye2
	}
	sx := newScale(xe, left, left+w, p.reverseX)
	sy := newScale(ye, top+h, top, false)
	sy2 := sy
	if ye2.n > 0 {
		sy2 = newScale(ye2, top+h, top, false)
	}

	for i := 0; i < ticks; i++ {
		fx := sx.lo + (sx.hi-sx.lo)*float64(i)/float64(ticks-1)
		px := sx.at(fx)
		canvas.Line(px, top, px, top+h, gridStyle)
		canvas.Text(px, top+h+16, formatTick(fx), "text-anchor:middle;"+tickStyle)

		fy := sy.lo + (sy.hi-sy.lo)*float64(i)/float64(ticks-1)
		py := sy.at(fy)
		canvas.Line(left, py, left+w, py, gridStyle)
		canvas.Text(left-6, py+4, formatTick(fy), "text-anchor:end;"+tickStyle+tint(p.ycolor))

		if dual {
			fy2 := sy2.lo + (sy2.hi-sy2.lo)*float64(i)/float64(ticks-1)
			canvas.Text(left+w+6, sy2.at(fy2)+4, formatTick(fy2), "text-anchor:start;"+tickStyle+tint(p.y2color))
		}
	}
	for _, m := range p.marks {
		px := sx.at(m)
		canvas.Line(px, top, px, top+h, markStyle)
	}
	canvas.Rect(left, top, w, h, frameStyle)

	for i, s := range p.series {
		color := s.color
		if color == "" {
			color = palette[i%len(palette)]
		}
		ys := sy
		if s.right {
			ys = sy2
		}
		drawSeries(canvas, s, sx, ys, color)
	}
	p.drawLegend(canvas, left+w-150, top+8)
}

func axisLabel(canvas *svg.SVG, x, y int, label, color string) {
	canvas.TranslateRotate(x, y, -90)
	canvas.Text(0, 0, label, labelStyle+tint(color))
	canvas.Gend()
}

func tint(color string) string {
	if color == "" {
		return ""
	}
	return ";fill:" + color
}

// drawSeries draws s as polylines broken wherever a point is undefined, or as
// separate markers when s.dots is set.
func drawSeries(canvas *svg.SVG, s series, sx, sy scale, color string) {
	if s.dots {
		for i := range s.x {
			if model.IsDefined(s.x[i]) && model.IsDefined(s.y[i]) {
				canvas.Circle(sx.at(s.x[i]), sy.at(s.y[i]), 2, "fill-opacity:0.6;fill:"+color)
			}
		}
		return
	}
	line := "fill:none;stroke-width:1.5;stroke:" + color
	var px, py []int
	flush := func() {
		switch {
		case len(px) == 1:
			canvas.Circle(px[0], py[0], 2, "fill:"+color)
		case len(px) > 1:
			canvas.Polyline(px, py, line)
		}
		px, py = px[:0], py[:0]
	}
	for i := range s.x {
		if !model.IsDefined(s.x[i]) || !model.IsDefined(s.y[i]) {
			flush()
			continue
		}
		px = append(px, sx.at(s.x[i]))
		py = append(py, sy.at(s.y[i]))
	}
	flush()
}

func (p *panel) drawLegend(canvas *svg.SVG, x, y int) {
	if len(p.series) < 2 && (len(p.series) == 0 || p.series[0].label == "") {
		return
	}
	for i, s := range p.series {
		if i == maxLegend {
			canvas.Text(x+24, y+i*15+4, "+"+strconv.Itoa(len(p.series)-maxLegend)+" more", legendStyle)
			return
		}
		color := s.color
		if color == "" {
			color = palette[i%len(palette)]
		}
		ly := y + i*15
		if s.dots {
			canvas.Circle(x+9, ly, 3, "fill:"+color)
		} else {
			canvas.Line(x, ly, x+18, ly, "stroke-width:2;stroke:"+color)
		}
		canvas.Text(x+24, ly+4, s.label, legendStyle)
	}
}

type extent struct {
	min, max float64
	n        int
}

func (e *extent) add(v float64) {
	if e.n == 0 || v < e.min {
		e.min = v
	}
	if e.n == 0 || v > e.max {
		e.max = v
	}
	e.n++
}

// scale maps data values in [lo, hi] onto pixels [a, b].
type scale struct {
	lo, hi float64
	a, b   int
}

func newScale(e extent, a, b int, reverse bool) scale {
	lo, hi := e.min, e.max
	if hi == lo {
		d := math.Abs(lo) * 0.05
		if d == 0 {
			d = 1
		}
		lo, hi = lo-d, hi+d
	}
	if reverse {
		a, b = b, a
	}
	return scale{lo: lo, hi: hi, a: a, b: b}
}

func (s scale) at(v float64) int {
	return s.a + int(math.Round((v-s.lo)/(s.hi-s.lo)*float64(s.b-s.a)))
}

func formatTick(v float64) string {
	if math.Abs(v) < 1e-12 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}
