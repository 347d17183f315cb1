package report

import (
	"fmt"
	"image/color"

	"github.com/user/trackway_analyzer_go/internal/numeric"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// logFloor is the bar base on a log scaled axis, below a count of one.
const logFloor = 0.5

// HistogramSpec describes one fixed-domain histogram figure.
type HistogramSpec struct {
	Title  string
	XLabel string
	YLabel string
	Data   []float64
	Bins   int
	Lo, Hi float64
	Log    bool
	Color  color.Color
}

// barColor is a translucent blue.
var barColor = color.NRGBA{B: 255, A: 191}

// binBars draws precomputed bins as filled bars rising from a floor value,
// skipping empty bins so a log axis never sees a zero.
type binBars struct {
	bins  []numeric.Bin
	floor float64
	fill  color.Color
	line  draw.LineStyle
}

func (b *binBars) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, bin := range b.bins {
		if float64(bin.Count) <= b.floor {
			continue
		}
		x0, x1 := trX(bin.Min), trX(bin.Max)
		y0, y1 := trY(b.floor), trY(float64(bin.Count))
		pts := []vg.Point{{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}}
		c.FillPolygon(b.fill, c.ClipPolygonXY(pts))
		pts = append(pts, pts[0])
		c.StrokeLines(b.line, c.ClipLinesXY(pts)...)
	}
}

func (b *binBars) DataRange() (xmin, xmax, ymin, ymax float64) {
	if len(b.bins) == 0 {
		return 0, 1, b.floor, 1
	}
	ymax = 1
	for _, bin := range b.bins {
		if float64(bin.Count) > ymax {
			ymax = float64(bin.Count)
		}
	}
	return b.bins[0].Min, b.bins[len(b.bins)-1].Max, b.floor, ymax
}

// DrawHistogram bins spec.Data and draws it onto p. It returns the bins
// used.
func DrawHistogram(p *plot.Plot, spec HistogramSpec) ([]numeric.Bin, error) {
	if spec.Bins <= 0 {
		return nil, fmt.Errorf("report: histogram %q needs a positive bin count", spec.Title)
	}
	if !(spec.Hi > spec.Lo) {
		return nil, fmt.Errorf("report: histogram %q has an empty domain [%v, %v]", spec.Title, spec.Lo, spec.Hi)
	}
	bins := numeric.Histogram(spec.Data, spec.Bins, spec.Lo, spec.Hi)

	fill := spec.Color
	if fill == nil {
		fill = barColor
	}
	bars := &binBars{bins: bins, fill: fill, line: plotter.DefaultLineStyle}
	bars.line.Width = vg.Points(0.5)

	p.Title.Text = spec.Title
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel
	if spec.Log {
		bars.floor = logFloor
		p.Title.Text += " (log)"
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Add(plotter.NewGrid(), bars)
	p.X.Min = spec.Lo
	p.X.Max = spec.Hi
	return bins, nil
}
