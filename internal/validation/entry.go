package validation

import (
	"math"

	"github.com/user/trackway_analyzer_go/internal/numeric"
	"github.com/user/trackway_analyzer_go/internal/tracks"
)

// Entry compares one reconstructed track-pair distance with the length
// measured in the field. All lengths are metres.
type Entry struct {
	Track *tracks.Track // carries the measurement
	Next  *tracks.Track

	Distance   float64 // reconstructed from the entered positions
	Measured   float64
	Delta      float64 // Distance - Measured
	Error      float64 // propagated uncertainty of Distance
	Fractional float64 // Delta / Distance
	// SigmaDev is |Delta| in multiples of the run's significance threshold.
	// NaN until the post phase classifies the entry.
	SigmaDev float64
}

// NewEntry reconstructs the distance between track and next and compares it
// with measured. It returns numeric.ErrZeroDistance when both tracks share a
// position.
func NewEntry(track, next *tracks.Track, measured float64) (*Entry, error) {
	x, z := track.PositionM()
	xNext, zNext := next.PositionM()

	distance := numeric.Distance(x, z, xNext, zNext)
	if distance == 0 {
		return nil, numeric.ErrZeroDistance
	}

	trackUnc := numeric.CombinedUncertainty(track.WidthUncertainty, track.LengthUncertainty)
	nextUnc := numeric.CombinedUncertainty(next.WidthUncertainty, next.LengthUncertainty)
	distErr, err := numeric.PropagateLinearError(trackUnc, nextUnc,
		math.Abs(xNext-x), math.Abs(zNext-z), distance)
	if err != nil {
		return nil, err
	}

	delta := distance - measured
	return &Entry{
		Track:      track,
		Next:       next,
		Distance:   distance,
		Measured:   measured,
		Delta:      delta,
		Error:      distErr,
		Fractional: delta / distance,
		SigmaDev:   math.NaN(),
	}, nil
}

// Classified reports whether SigmaDev has been assigned.
func (e *Entry) Classified() bool { return !math.IsNaN(e.SigmaDev) }

// ValueLabel is |Delta| with its propagated error, e.g. "0.50 ± 0.03".
func (e *Entry) ValueLabel() string {
	return numeric.ValueWithUncertainty(math.Abs(e.Delta), e.Error).Label()
}
