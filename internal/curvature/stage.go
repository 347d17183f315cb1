package curvature

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/trackway_analyzer_go/internal/analysis"
	"github.com/user/trackway_analyzer_go/internal/numeric"
	"github.com/user/trackway_analyzer_go/internal/report"
	"github.com/user/trackway_analyzer_go/internal/tracks"
)

const (
	entriesKey    = "entries"
	tooShortKey   = "tooShort"
	degenerateKey = "degenerate"
	figureKey     = "curvature"
)

// Entry is the measured curvature of one series.
type Entry struct {
	Trackway *tracks.Trackway
	Series   *tracks.Series
	First    *tracks.Track
	Measurement
}

// Name is e.g. "S1-LP".
func (e *Entry) Name() string { return e.Trackway.Name() + "-" + e.Series.Name() }

var curvatureFields = []report.Field{
	{Key: "series", Header: "Series"},
	{Key: "fingerprint", Header: "Fingerprint"},
	{Key: "tracks", Header: "Tracks"},
	{Key: "path", Header: "Path (m)"},
	{Key: "chord", Header: "Chord (m)"},
	{Key: "curvature", Header: "Curvature"},
	{Key: "offset", Header: "Max Offset (m)"},
	{Key: "error", Header: "Chord Error (m)"},
}

// SeriesCurvatureStage measures the curvature of every series.
type SeriesCurvatureStage struct {
	*analysis.Base
	bins int
}

// NewSeriesCurvatureStage returns the stage with a histogram of bins bins.
func NewSeriesCurvatureStage(bins int) *SeriesCurvatureStage {
	if bins <= 0 {
		bins = 31
	}
	return &SeriesCurvatureStage{Base: analysis.NewBase("curvature", "Series Curvature"), bins: bins}
}

// Entries returns the measured series of the current run.
func (s *SeriesCurvatureStage) Entries() []*Entry {
	return analysis.CacheValue[[]*Entry](s.Cache(), entriesKey)
}

// TooShort is the number of series with fewer than MinTracks tracks.
func (s *SeriesCurvatureStage) TooShort() int { return s.Cache().Int(tooShortKey) }

func (s *SeriesCurvatureStage) PreAnalyze(context.Context) error {
	s.Cache().Set(entriesKey, []*Entry{})
	s.Cache().Set(tooShortKey, 0)
	s.Cache().Set(degenerateKey, 0)
	return nil
}

func (s *SeriesCurvatureStage) VisitSeries(_ context.Context, tw *tracks.Trackway, sr *tracks.Series, ts []*tracks.Track) (bool, error) {
	m, err := Measure(ts)
	switch {
	case errors.Is(err, ErrTooShort):
		s.Cache().Inc(tooShortKey, 1)
		return false, nil
	case errors.Is(err, ErrDegenerate):
		s.Cache().Inc(degenerateKey, 1)
		s.Logger().Warn("Invalid series geometry of zero length. Ignoring series",
			"series", tw.Name()+"-"+sr.Name(), "track", ts[0].Fingerprint(), "uid", ts[0].UID)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("measure %s-%s: %w", tw.Name(), sr.Name(), err)
	}
	e := &Entry{Trackway: tw, Series: sr, First: ts[0], Measurement: m}
	s.Cache().Set(entriesKey, append(s.Entries(), e))
	return false, nil
}

func (s *SeriesCurvatureStage) PostAnalyze(context.Context) error {
	log := s.Logger()
	entries := s.Entries()
	if len(entries) == 0 {
		log.Warn("No series long enough to measure curvature")
		return nil
	}

	values := make([]float64, len(entries))
	for i, e := range entries {
		values[i] = e.Curvature
	}
	sum := numeric.Summarize(values)
	log.Info("Series Curvature " + sum.Label())

	s.writeCSV(entries)

	figs := s.Env().Figures()
	p := figs.Create(figureKey)
	defer figs.Release(figureKey)
	if _, err := report.DrawHistogram(p, report.HistogramSpec{
		Title:  "Series Curvature Distribution",
		XLabel: "Curvature",
		YLabel: "Frequency",
		Data:   values,
		Bins:   s.bins,
		Lo:     0,
		Hi:     1,
	}); err != nil {
		return fmt.Errorf("curvature histogram: %w", err)
	}
	out, err := s.Env().Path("Series-Curvature.pdf")
	if err != nil {
		return err
	}
	if err := figs.Save(figureKey, out, report.FigureWidth, report.FigureHeight); err != nil {
		log.Error("Failed to save curvature histogram", "path", out, "error", err)
		return nil
	}
	s.AddArtifact(out)
	return nil
}

func (s *SeriesCurvatureStage) writeCSV(entries []*Entry) {
	path, err := s.Env().Path("Series-Curvature.csv")
	if err != nil {
		s.Logger().Error("Failed to save CSV file", "error", err)
		return
	}
	csv := report.NewCSVWriter(path, curvatureFields...)
	for _, e := range entries {
		csv.AddRow(map[string]any{
			"series":      e.Name(),
			"fingerprint": e.First.Fingerprint(),
			"tracks":      e.Tracks,
			"path":        numeric.RoundToSigFigs(e.PathLength, 4),
			"chord":       numeric.RoundToSigFigs(e.Chord, 4),
			"curvature":   numeric.RoundToOrder(e.Curvature, -4),
			"offset":      numeric.RoundToSigFigs(e.MaxOffset, 3),
			"error":       numeric.RoundToSigFigs(e.ChordError, 2),
		})
	}
	if err := csv.Save(); err != nil {
		s.Logger().Error("Failed to save CSV file "+csv.Path, "error", err)
	}
}

func (s *SeriesCurvatureStage) Footer() []string {
	return []string{
		fmt.Sprintf("Processed %d series", len(s.Entries())),
		fmt.Sprintf("%d series with fewer than %d tracks", s.TooShort(), MinTracks),
	}
}
