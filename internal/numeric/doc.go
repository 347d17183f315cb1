// Package numeric holds the measurement arithmetic shared by the analysis
// stages: planar distances, first order error propagation, sample summaries
// and the rounding used for reporting.
package numeric
