package validation

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/user/trackway_analyzer_go/internal/numeric"
	"github.com/user/trackway_analyzer_go/internal/report"
)

// Histogram domains of the fractional error and its absolute value.
const (
	fractionalLo = -1.0
	fractionalHi = 1.0
	absoluteLo   = 0.0
	absoluteHi   = 1.0
)

// figureKey names the reusable figure the histograms are drawn on.
const figureKey = "makePlot"

var deviationFields = []report.Field{
	{Key: "uid", Header: "UID"},
	{Key: "fingerprint", Header: "Fingerprint"},
	{Key: "entered", Header: "Entered (m)"},
	{Key: "measured", Header: "Measured (m)"},
	{Key: "dev", Header: "Deviation"},
	{Key: "value", Header: "Value (m)"},
}

func (s *LengthStage) PostAnalyze(context.Context) error {
	log := s.Logger()
	log.Info("FRACTIONAL ERROR (Measured vs Entered)")

	entries := s.Entries()
	if len(entries) == 0 {
		log.Warn(fmt.Sprintf("No %s entries to analyze", s.dataName))
		return nil
	}

	fractional := make([]float64, len(entries))
	absolute := make([]float64, len(entries))
	for i, e := range entries {
		fractional[i] = e.Fractional
		absolute[i] = math.Abs(e.Fractional)
	}
	sum := numeric.Summarize(fractional)
	s.Cache().Set(summaryKey, sum)
	log.Info(fmt.Sprintf("Fractional %s Error %s", title(s.dataName), sum.Label()))

	label := fmt.Sprintf("Fractional %s Errors", title(s.dataName))
	var paths []string
	for _, h := range []struct {
		label  string
		data   []float64
		lo, hi float64
		log    bool
	}{
		{label, fractional, fractionalLo, fractionalHi, false},
		{label, fractional, fractionalLo, fractionalHi, true},
		{"Absolute " + label, absolute, absoluteLo, absoluteHi, false},
		{"Absolute " + label, absolute, absoluteLo, absoluteHi, true},
	} {
		path, err := s.makePlot(h.label, h.data, h.lo, h.hi, h.log)
		if err != nil {
			return fmt.Errorf("plot %s: %w", h.label, err)
		}
		paths = append(paths, path)
	}

	significant := s.classify(entries, sum)
	s.Cache().Set(significantKey, significant)
	s.writeDeviations(significant)

	percentage := numeric.RoundToOrder(100*float64(len(significant))/float64(len(entries)), -2)
	log.Info(fmt.Sprintf("%d significant %s (%s%%)",
		len(significant), "fractional "+s.dataName+" errors", strconv.FormatFloat(percentage, 'f', -1, 64)))
	if exceedsCoverage(len(significant), len(entries), s.params.Coverage) {
		log.Warn("Large deviation count exceeds normal distribution expectations.")
	}

	out, err := s.Env().Path(s.fileLabel() + ".pdf")
	if err != nil {
		log.Error("Failed to allocate report path", "error", err)
		return nil
	}
	if err := s.Env().MergePDFs(out, paths); err != nil {
		log.Error("Failed to merge histograms", "path", out, "error", err)
		return nil
	}
	s.AddArtifact(out)
	return nil
}

// classify assigns every entry its sigma deviation against the threshold
// floor + spread and returns the entries at or beyond SignificanceSigma.
func (s *LengthStage) classify(entries []*Entry, sum numeric.Summary) []*Entry {
	sigmaMag := s.params.InstrumentFloor + sum.Uncertainty
	if sigmaMag <= 0 {
		s.Logger().Warn("Significance threshold is zero; deviations not classified")
		return nil
	}

	var significant []*Entry
	for _, e := range entries {
		e.SigmaDev = numeric.SigmaCount(e.Delta, sigmaMag)
		if e.SigmaDev >= s.params.SignificanceSigma {
			significant = append(significant, e)
		}
	}
	return significant
}

// writeDeviations writes <Label>-Deviations.csv and logs one aligned line
// per significant entry. A failed save is logged only.
func (s *LengthStage) writeDeviations(significant []*Entry) {
	log := s.Logger()
	path, err := s.Env().Path(s.fileLabel() + "-Deviations.csv")
	if err != nil {
		log.Error("Failed to save CSV file", "error", err)
		return
	}

	csv := report.NewCSVWriter(path, deviationFields...)
	for _, e := range significant {
		entered := numeric.RoundToSigFigs(e.Distance, 3)
		measured := numeric.RoundToSigFigs(e.Measured, 3)
		value := e.ValueLabel()
		csv.AddRow(map[string]any{
			"uid":         e.Track.UID,
			"fingerprint": e.Track.Fingerprint(),
			"entered":     entered,
			"measured":    measured,
			"dev":         e.SigmaDev,
			"value":       value,
		})
		log.Info(fmt.Sprintf("  * %-32s%-16s%-20s%-20s%s",
			e.Track.Fingerprint(),
			formatFloat(e.SigmaDev),
			"("+value+" m)",
			fmt.Sprintf("[%s <-> %s]", formatFloat(entered), formatFloat(measured)),
			e.Track.UID))
	}
	if err := csv.Save(); err != nil {
		log.Error("Failed to save CSV file "+csv.Path, "error", err)
	}
}

// makePlot draws one histogram on the shared figure and saves it as a temp
// PDF.
func (s *LengthStage) makePlot(label string, data []float64, lo, hi float64, logY bool) (string, error) {
	figs := s.Env().Figures()
	p := figs.Create(figureKey)
	defer figs.Release(figureKey)

	if _, err := report.DrawHistogram(p, report.HistogramSpec{
		Title:  label + " Distribution",
		XLabel: "Fractional Deviation",
		YLabel: "Frequency",
		Data:   data,
		Bins:   s.params.Bins,
		Lo:     lo,
		Hi:     hi,
		Log:    logY,
	}); err != nil {
		return "", err
	}

	path, err := s.Env().TempPath(".pdf")
	if err != nil {
		return "", err
	}
	if err := figs.Save(figureKey, path, report.FigureWidth, report.FigureHeight); err != nil {
		return "", err
	}
	return path, nil
}

// Tables lists the significant deviations for the run summary.
func (s *LengthStage) Tables() []report.Table {
	significant := s.Significant()
	if len(significant) == 0 {
		return nil
	}
	t := report.Table{
		Title:   s.Label() + " Deviations",
		Headers: []string{"UID", "Fingerprint", "Entered (m)", "Measured (m)", "Deviation", "Value (m)"},
		Widths:  []float64{0.14, 0.30, 0.12, 0.12, 0.12, 0.20},
	}
	for _, e := range significant {
		t.Rows = append(t.Rows, []string{
			e.Track.UID,
			e.Track.Fingerprint(),
			formatFloat(numeric.RoundToSigFigs(e.Distance, 3)),
			formatFloat(numeric.RoundToSigFigs(e.Measured, 3)),
			formatFloat(e.SigmaDev),
			e.ValueLabel(),
		})
	}
	return []report.Table{t}
}

// exceedsCoverage reports whether count of total entries, as a percentage
// rounded to 0.01, lies strictly above the tail 100 - coverage.
func exceedsCoverage(count, total int, coverage float64) bool {
	if total == 0 {
		return false
	}
	percentage := numeric.RoundToOrder(100*float64(count)/float64(total), -2)
	return percentage > numeric.RoundToOrder(100-coverage, -2)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// title upper-cases the first letter of an ASCII word.
func title(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
