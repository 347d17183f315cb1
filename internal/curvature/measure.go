// Package curvature measures how far each track series departs from a
// straight walk.
package curvature

import (
	"errors"
	"math"

	"github.com/user/trackway_analyzer_go/internal/numeric"
	"github.com/user/trackway_analyzer_go/internal/tracks"
)

// MinTracks is the shortest series with a defined curvature.
const MinTracks = 3

var (
	// ErrTooShort is returned for series with fewer than MinTracks tracks.
	ErrTooShort = errors.New("curvature: series too short")
	// ErrDegenerate is returned when the path or its chord has zero length.
	ErrDegenerate = errors.New("curvature: zero path or chord length")
)

// Measurement is the curvature of one series. Lengths are metres.
type Measurement struct {
	Tracks     int
	PathLength float64 // sum of consecutive track distances
	Chord      float64 // first to last track
	ChordError float64
	Curvature  float64 // 1 - Chord/PathLength
	MaxOffset  float64 // largest distance of a track from the chord line
}

// Measure computes the curvature of an ordered series.
func Measure(ts []*tracks.Track) (Measurement, error) {
	m := Measurement{Tracks: len(ts)}
	if len(ts) < MinTracks {
		return m, ErrTooShort
	}

	xs := make([]float64, len(ts))
	zs := make([]float64, len(ts))
	for i, t := range ts {
		xs[i], zs[i] = t.PositionM()
	}
	for i := 1; i < len(ts); i++ {
		m.PathLength += numeric.Distance(xs[i-1], zs[i-1], xs[i], zs[i])
	}

	last := len(ts) - 1
	dx, dz := xs[last]-xs[0], zs[last]-zs[0]
	m.Chord = numeric.Distance(xs[0], zs[0], xs[last], zs[last])
	if m.PathLength == 0 || m.Chord == 0 {
		return m, ErrDegenerate
	}

	first, end := ts[0], ts[last]
	var err error
	m.ChordError, err = numeric.PropagateLinearError(
		numeric.CombinedUncertainty(first.WidthUncertainty, first.LengthUncertainty),
		numeric.CombinedUncertainty(end.WidthUncertainty, end.LengthUncertainty),
		math.Abs(dx), math.Abs(dz), m.Chord)
	if err != nil {
		return m, err
	}

	m.Curvature = 1 - m.Chord/m.PathLength
	// Rounding can leave a straight series a hair below zero.
	if m.Curvature < 0 {
		m.Curvature = 0
	}
	for i := 1; i < last; i++ {
		// |cross(chord, p - p0)| / |chord|
		off := math.Abs(dx*(zs[i]-zs[0])-dz*(xs[i]-xs[0])) / m.Chord
		m.MaxOffset = math.Max(m.MaxOffset, off)
	}
	return m, nil
}
