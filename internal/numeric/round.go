package numeric

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RoundToOrder rounds value to the nearest multiple of 10^order. An order of
// -2 rounds to the nearest 0.01, an order of 3 to the nearest 1000.
func RoundToOrder(value float64, order int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	if order < 0 {
		m := math.Pow(10, float64(-order))
		return math.Round(value*m) / m
	}
	m := math.Pow(10, float64(order))
	return math.Round(value/m) * m
}

// RoundToSigFigs rounds value to n significant figures.
func RoundToSigFigs(value float64, n int) float64 {
	if value == 0 || n <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	return RoundToOrder(value, OrderOfMagnitude(value)-n+1)
}

// OrderOfMagnitude returns floor(log10(|value|)), or 0 for a zero value.
func OrderOfMagnitude(value float64) int {
	if value == 0 {
		return 0
	}
	return int(math.Floor(math.Log10(math.Abs(value))))
}

// formatAtOrder prints value with as many decimals as order requires.
func formatAtOrder(value float64, order int) string {
	decimals := 0
	if order < 0 {
		decimals = -order
	}
	s := strconv.FormatFloat(value, 'f', decimals, 64)
	if strings.Trim(s, "-0.") == "" {
		return strings.TrimPrefix(s, "-")
	}
	return s
}

// ValueUncertainty is a magnitude paired with its uncertainty, both rounded
// to the order of the uncertainty's leading digit.
type ValueUncertainty struct {
	Value       float64
	Uncertainty float64
	order       int
}

// ValueWithUncertainty rounds uncertainty to one significant figure and value
// to the same order. A zero uncertainty keeps three significant figures of
// value.
func ValueWithUncertainty(value, uncertainty float64) ValueUncertainty {
	uncertainty = math.Abs(uncertainty)
	if uncertainty == 0 || math.IsNaN(uncertainty) {
		order := OrderOfMagnitude(value) - 2
		return ValueUncertainty{Value: RoundToOrder(value, order), order: order}
	}
	order := OrderOfMagnitude(uncertainty)
	u := RoundToOrder(uncertainty, order)
	// Rounding may carry into the next order (0.096 -> 0.1).
	if o := OrderOfMagnitude(u); o != order {
		order = o
	}
	return ValueUncertainty{
		Value:       RoundToOrder(value, order),
		Uncertainty: u,
		order:       order,
	}
}

// Label renders the pair as "1.23 ± 0.05".
func (v ValueUncertainty) Label() string {
	return fmt.Sprintf("%s ± %s", formatAtOrder(v.Value, v.order), formatAtOrder(v.Uncertainty, v.order))
}

func (v ValueUncertainty) String() string { return v.Label() }
