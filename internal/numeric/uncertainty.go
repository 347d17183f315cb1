package numeric

import (
	"errors"
	"math"
)

// ErrZeroDistance is returned when an error propagation is attempted over a
// zero-length separation. Callers must exclude such pairs beforehand.
var ErrZeroDistance = errors.New("numeric: zero distance")

// Distance returns the planar Euclidean distance between (x1, z1) and (x2, z2)
// in the units of the inputs.
func Distance(x1, z1, x2, z2 float64) float64 {
	return math.Hypot(x2-x1, z2-z1)
}

// CombinedUncertainty sums two independent uncertainties in quadrature.
func CombinedUncertainty(a, b float64) float64 {
	return math.Hypot(a, b)
}

// PropagateLinearError returns the first order uncertainty of a distance
// computed between two uncertain points A and B separated by (dx, dz).
// Each point contributes unc*|d|/distance along each axis; the partial
// derivatives are taken by magnitude.
func PropagateLinearError(uncA, uncB, dx, dz, distance float64) (float64, error) {
	if distance == 0 {
		return 0, ErrZeroDistance
	}
	dx = math.Abs(dx)
	dz = math.Abs(dz)

	errAX := uncA * dx / distance
	errAZ := uncA * dz / distance
	errBX := uncB * dx / distance
	errBZ := uncB * dz / distance
	return errAX + errAZ + errBX + errBZ, nil
}

// SigmaCount expresses |delta| as a multiple of sigma, rounded to 0.01.
func SigmaCount(delta, sigma float64) float64 {
	return RoundToOrder(math.Abs(delta/sigma), -2)
}
