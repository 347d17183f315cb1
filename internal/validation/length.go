package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/user/trackway_analyzer_go/internal/analysis"
	"github.com/user/trackway_analyzer_go/internal/numeric"
	"github.com/user/trackway_analyzer_go/internal/tracks"
)

// Parameter defaults.
const (
	DefaultBins              = 31
	DefaultInstrumentFloor   = 0.03
	DefaultSignificanceSigma = 2.0
	DefaultCoverage          = 95.45
)

// Params are the statistical settings of a length stage.
type Params struct {
	Bins int
	// InstrumentFloor is added to the spread of the fractional errors to
	// form the significance threshold, in metres.
	InstrumentFloor float64
	// SignificanceSigma is the sigma count at which a deviation is reported.
	SignificanceSigma float64
	// Coverage is the percentage of a normal distribution expected within
	// SignificanceSigma; a higher outlier rate is warned about.
	Coverage float64
}

// DefaultParams returns the standard settings.
func DefaultParams() Params {
	return Params{
		Bins:              DefaultBins,
		InstrumentFloor:   DefaultInstrumentFloor,
		SignificanceSigma: DefaultSignificanceSigma,
		Coverage:          DefaultCoverage,
	}
}

// Cache keys.
const (
	entriesKey     = "entries"
	noDataKey      = "noData"
	byUIDKey       = "byUID"
	summaryKey     = "summary"
	significantKey = "significant"
	mismatchedKey  = "mismatched"
)

// LengthStage validates an independently measured length (stride or pace)
// against the distance reconstructed from entered track positions.
type LengthStage struct {
	*analysis.Base
	pairing     Pairing
	snapshotKey string
	dataName    string // "stride" or "pace"
	params      Params
}

// NewLengthStage returns a length stage reading measurements under
// snapshotKey and forming pairs with pairing.
func NewLengthStage(key, label, dataName, snapshotKey string, pairing Pairing, params Params) *LengthStage {
	return &LengthStage{
		Base:        analysis.NewBase(key, label),
		pairing:     pairing,
		snapshotKey: snapshotKey,
		dataName:    dataName,
		params:      params,
	}
}

// NewStrideLengthStage compares measured stride lengths with adjacent tracks
// of each series.
func NewStrideLengthStage(params Params) *LengthStage {
	return NewLengthStage("stride", "Stride Length", "stride", tracks.StrideLengthKey, SeriesPairing(), params)
}

// NewPaceLengthStage compares measured pace lengths with alternating
// left/right tracks of each limb.
func NewPaceLengthStage(params Params) *LengthStage {
	return NewLengthStage("pace", "Pace Length", "pace", tracks.PaceLengthKey, AlternatingPairing(), params)
}

func (s *LengthStage) Pairing() Pairing { return s.pairing }
func (s *LengthStage) Params() Params { return s.params }

// Entries returns the entries of the current run in traversal order.
func (s *LengthStage) Entries() []*Entry {
	return analysis.CacheValue[[]*Entry](s.Cache(), entriesKey)
}

// NoData is the number of pairs skipped for a missing measurement.
func (s *LengthStage) NoData() int { return s.Cache().Int(noDataKey) }

// Mismatched is the number of interleaved pairs skipped because their sides
// did not alternate as the pairing step requires.
func (s *LengthStage) Mismatched() int { return s.Cache().Int(mismatchedKey) }

// Summary is the fractional error summary computed by the post phase.
func (s *LengthStage) Summary() (numeric.Summary, bool) {
	v, ok := s.Cache().Get(summaryKey)
	if !ok {
		return numeric.Summary{}, false
	}
	sum, ok := v.(numeric.Summary)
	return sum, ok
}

// Significant returns the entries reported as significant deviations.
func (s *LengthStage) Significant() []*Entry {
	return analysis.CacheValue[[]*Entry](s.Cache(), significantKey)
}

// Deviation returns the entry measured from the track uid in the current
// run. It is valid until the next PreAnalyze.
func (s *LengthStage) Deviation(uid string) (*Entry, bool) {
	m := analysis.CacheValue[map[string]*Entry](s.Cache(), byUIDKey)
	e, ok := m[uid]
	return e, ok
}

func (s *LengthStage) PreAnalyze(context.Context) error {
	c := s.Cache()
	c.Set(entriesKey, []*Entry{})
	c.Set(byUIDKey, make(map[string]*Entry))
	c.Set(noDataKey, 0)
	c.Set(mismatchedKey, 0)
	return nil
}

// VisitTrackway measures interleaved pairs across the trackway's series and
// skips descending into them. Per-series pairings descend.
func (s *LengthStage) VisitTrackway(ctx context.Context, _ *tracks.SiteMap, tw *tracks.Trackway) (bool, error) {
	if s.pairing.Scope != Interleaved {
		return true, nil
	}
	src := s.Env().Source
	series, err := src.Series(ctx, tw)
	if err != nil {
		return false, fmt.Errorf("load series: %w", err)
	}

	left := map[bool][]*tracks.Track{}
	right := map[bool][]*tracks.Track{}
	for _, sr := range series {
		ts, err := src.Tracks(ctx, sr)
		if err != nil {
			return false, fmt.Errorf("load tracks of %s: %w", sr.Name(), err)
		}
		if sr.Left {
			left[sr.Pes] = append(left[sr.Pes], ts...)
		} else {
			right[sr.Pes] = append(right[sr.Pes], ts...)
		}
	}

	for _, pes := range []bool{true, false} {
		pairs, mismatched := s.pairing.interleavedPairs(interleave(left[pes], right[pes]))
		s.Cache().Inc(mismatchedKey, len(mismatched))
		for _, p := range mismatched {
			s.Logger().Warn("Unexpected track sides in pair. Ignoring track",
				"trackway", tw.Name(), "track", p.First.Fingerprint(), "uid", p.First.UID,
				"next", p.Second.Fingerprint(), "next_uid", p.Second.UID)
		}
		for _, p := range pairs {
			s.measure(p, false)
		}
	}
	return false, nil
}

func (s *LengthStage) VisitSeries(_ context.Context, _ *tracks.Trackway, _ *tracks.Series, ts []*tracks.Track) (bool, error) {
	for _, p := range s.pairing.seriesPairs(ts) {
		s.measure(p, s.pairing.checksLinks())
	}
	return false, nil
}

// measure records one entry for p, or counts or logs why it cannot.
func (s *LengthStage) measure(p pair, checkLink bool) {
	track, next := p.First, p.Second
	measured, ok := track.SnapshotValue(s.snapshotKey)
	if !ok {
		s.Cache().Inc(noDataKey, 1)
		return
	}

	log := s.Logger()
	if checkLink {
		if err := tracks.CheckLink(track, next); err != nil {
			log.Error(fmt.Sprintf("Invalid track ordering (%s -> %s)", track.UID, next.UID),
				"next", track.Next)
		}
	}

	e, err := NewEntry(track, next, measured)
	if errors.Is(err, numeric.ErrZeroDistance) {
		log.Warn("Invalid track separation of 0.0. Ignoring track",
			"track", track.Fingerprint(), "uid", track.UID,
			"next", next.Fingerprint(), "next_uid", next.UID)
		return
	}
	if err != nil {
		log.Error("Failed to measure track pair", "uid", track.UID, "error", err)
		return
	}

	c := s.Cache()
	c.Set(entriesKey, append(s.Entries(), e))
	analysis.CacheValue[map[string]*Entry](c, byUIDKey)[track.UID] = e
}

func (s *LengthStage) Footer() []string {
	lines := []string{
		fmt.Sprintf("Processed %d tracks", len(s.Entries())),
		fmt.Sprintf("%d tracks with no %s data", s.NoData(), s.dataName),
	}
	if s.pairing.Scope == Interleaved {
		lines = append(lines, fmt.Sprintf("%d pairs skipped for unexpected sides", s.Mismatched()))
	}
	return lines
}

// fileLabel is the label as used in artifact names, e.g. "Stride-Length".
func (s *LengthStage) fileLabel() string { return fileName(s.Label()) }

func fileName(label string) string { return strings.ReplaceAll(label, " ", "-") }
