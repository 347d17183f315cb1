package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// BoundaryColormap maps a value to a discrete color by the interval it
// falls in.
type BoundaryColormap struct {
	Boundaries []float64     // N+1 boundaries for N colors
	Colors     []color.Color // N colors
	Labels     []string      // N legend labels
	UnderColor color.Color   // below the first boundary
	OverColor  color.Color   // at or above the last boundary
	NaNColor   color.Color
	UnderLabel string
	OverLabel  string
	NaNLabel   string
}

// class returns -1 for NaN, 0 for under, 1..N for the colors and N+1 for
// over.
func (cm *BoundaryColormap) class(z float64) int {
	if math.IsNaN(z) {
		return -1
	}
	if z < cm.Boundaries[0] {
		return 0
	}
	for i := 0; i < len(cm.Colors); i++ {
		if z >= cm.Boundaries[i] && z < cm.Boundaries[i+1] {
			return i + 1
		}
	}
	return len(cm.Colors) + 1
}

// Color returns the color for z.
func (cm *BoundaryColormap) Color(z float64) color.Color {
	switch c := cm.class(z); {
	case c < 0:
		return cm.NaNColor
	case c == 0:
		return cm.UnderColor
	case c > len(cm.Colors):
		return cm.OverColor
	default:
		return cm.Colors[c-1]
	}
}

// Label returns the legend label for z.
func (cm *BoundaryColormap) Label(z float64) string {
	switch c := cm.class(z); {
	case c < 0:
		return cm.NaNLabel
	case c == 0:
		return cm.UnderLabel
	case c > len(cm.Colors):
		return cm.OverLabel
	default:
		return cm.Labels[c-1]
	}
}

// SigmaColormap colors sigma deviations: green below 1, yellow below 2,
// orange below 3, red from 3 up and grey when there is no value.
func SigmaColormap() *BoundaryColormap {
	green := color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 255}
	return &BoundaryColormap{
		Boundaries: []float64{0, 1, 2, 3},
		Colors: []color.Color{
			green,
			color.RGBA{R: 0xdb, G: 0xdb, B: 0x8d, A: 255},
			color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 255},
		},
		Labels:     []string{"< 1σ", "1-2σ", "2-3σ"},
		UnderColor: green,
		UnderLabel: "< 1σ",
		OverColor:  color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255},
		OverLabel:  "≥ 3σ",
		NaNColor:   color.Gray{Y: 200},
		NaNLabel:   "no data",
	}
}

// MapPoint is a track position in metres with the value used for coloring.
type MapPoint struct {
	X, Z  float64
	Value float64 // NaN when the track has no value
}

// MapSeries is one series of a trackway map, drawn as a connected path.
type MapSeries struct {
	Name   string
	Points []MapPoint
}

// DrawTrackwayMap draws every series as a thin grey path with each track
// colored by cm.
func DrawTrackwayMap(p *plot.Plot, title string, series []MapSeries, cm *BoundaryColormap) error {
	p.Title.Text = title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "z (m)"
	p.Add(plotter.NewGrid())

	groups := make(map[string]plotter.XYs)
	var order []string
	colors := make(map[string]color.Color)

	drawn := 0
	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		path := make(plotter.XYs, len(s.Points))
		for i, pt := range s.Points {
			path[i] = plotter.XY{X: pt.X, Y: pt.Z}
			label := cm.Label(pt.Value)
			if _, ok := groups[label]; !ok {
				order = append(order, label)
				colors[label] = cm.Color(pt.Value)
			}
			groups[label] = append(groups[label], plotter.XY{X: pt.X, Y: pt.Z})
		}
		if len(path) > 1 {
			line, err := plotter.NewLine(path)
			if err != nil {
				return fmt.Errorf("report: path for %s: %w", s.Name, err)
			}
			line.Color = color.Gray{Y: 150}
			line.Width = vg.Points(0.5)
			p.Add(line)
		}
		drawn++
	}
	if drawn == 0 {
		return fmt.Errorf("report: trackway map %q has no tracks", title)
	}

	for _, label := range order {
		sc, err := plotter.NewScatter(groups[label])
		if err != nil {
			return fmt.Errorf("report: scatter %s: %w", label, err)
		}
		sc.GlyphStyle.Color = colors[label]
		sc.GlyphStyle.Radius = vg.Points(3)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(label, sc)
	}
	p.Legend.Top = true
	return nil
}
