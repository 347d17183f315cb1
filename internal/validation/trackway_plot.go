package validation

import (
	"context"
	"fmt"
	"math"

	"github.com/user/trackway_analyzer_go/internal/analysis"
	"github.com/user/trackway_analyzer_go/internal/report"
	"github.com/user/trackway_analyzer_go/internal/tracks"
)

// DeviationSource is a stage whose classified entries can be looked up by
// track uid, e.g. a LengthStage that ran earlier in the same run.
type DeviationSource interface {
	Key() string
	Label() string
	Deviation(uid string) (*Entry, bool)
}

const (
	mapFigureKey = "trackwayMap"
	mapPathsKey  = "paths"
	emptyKey     = "empty"
)

// TrackwayPlotStage draws one map per trackway with every track colored by
// the sigma deviation found by its source stage.
type TrackwayPlotStage struct {
	*analysis.Base
	source   DeviationSource
	colormap *report.BoundaryColormap
}

// NewTrackwayPlotStage returns a plot stage for src. src must run before it.
func NewTrackwayPlotStage(src DeviationSource) *TrackwayPlotStage {
	return &TrackwayPlotStage{
		Base:     analysis.NewBase(src.Key()+"_plots", src.Label()+" Trackways"),
		source:   src,
		colormap: report.SigmaColormap(),
	}
}

func (s *TrackwayPlotStage) PreAnalyze(context.Context) error {
	s.Cache().Set(mapPathsKey, []string{})
	s.Cache().Set(emptyKey, 0)
	return nil
}

// VisitTrackway draws the trackway's map and skips its children.
func (s *TrackwayPlotStage) VisitTrackway(ctx context.Context, sm *tracks.SiteMap, tw *tracks.Trackway) (bool, error) {
	src := s.Env().Source
	series, err := src.Series(ctx, tw)
	if err != nil {
		return false, fmt.Errorf("load series: %w", err)
	}

	var ms []report.MapSeries
	n := 0
	for _, sr := range series {
		ts, err := src.Tracks(ctx, sr)
		if err != nil {
			return false, fmt.Errorf("load tracks of %s: %w", sr.Name(), err)
		}
		m := report.MapSeries{Name: sr.Name()}
		for _, t := range ts {
			x, z := t.PositionM()
			m.Points = append(m.Points, report.MapPoint{X: x, Z: z, Value: s.value(t)})
		}
		n += len(m.Points)
		ms = append(ms, m)
	}
	if n == 0 {
		s.Cache().Inc(emptyKey, 1)
		return false, nil
	}

	path, err := s.drawMap(fmt.Sprintf("%s %s", sm.Site(), tw.Name()), ms)
	if err != nil {
		return false, fmt.Errorf("trackway map %s: %w", tw.Name(), err)
	}
	s.Cache().Set(mapPathsKey, append(s.paths(), path))
	return false, nil
}

// value is the sigma deviation of the entry measured from t, NaN if none.
func (s *TrackwayPlotStage) value(t *tracks.Track) float64 {
	e, ok := s.source.Deviation(t.UID)
	if !ok {
		return math.NaN()
	}
	return e.SigmaDev
}

func (s *TrackwayPlotStage) drawMap(title string, ms []report.MapSeries) (string, error) {
	figs := s.Env().Figures()
	p := figs.Create(mapFigureKey)
	defer figs.Release(mapFigureKey)

	if err := report.DrawTrackwayMap(p, title, ms, s.colormap); err != nil {
		return "", err
	}
	path, err := s.Env().TempPath(".pdf")
	if err != nil {
		return "", err
	}
	if err := figs.Save(mapFigureKey, path, report.FigureWidth, report.FigureWidth); err != nil {
		return "", err
	}
	return path, nil
}

func (s *TrackwayPlotStage) paths() []string {
	return analysis.CacheValue[[]string](s.Cache(), mapPathsKey)
}

func (s *TrackwayPlotStage) PostAnalyze(context.Context) error {
	paths := s.paths()
	if len(paths) == 0 {
		s.Logger().Warn("No trackways to plot")
		return nil
	}
	out, err := s.Env().Path(s.fileLabel() + ".pdf")
	if err != nil {
		return err
	}
	if err := s.Env().MergePDFs(out, paths); err != nil {
		s.Logger().Error("Failed to merge trackway maps", "path", out, "error", err)
		return nil
	}
	s.AddArtifact(out)
	return nil
}

func (s *TrackwayPlotStage) Footer() []string {
	return []string{
		fmt.Sprintf("Plotted %d trackways", len(s.paths())),
		fmt.Sprintf("%d trackways without tracks", s.Cache().Int(emptyKey)),
	}
}

// fileLabel is e.g. "Stride-Length-Trackways".
func (s *TrackwayPlotStage) fileLabel() string {
	return fileName(s.source.Label()) + "-Trackways"
}
