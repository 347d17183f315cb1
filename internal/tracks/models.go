// Package tracks is the read-only data model consumed by the analysis
// pipeline: site maps own trackways, trackways own series, series are ordered
// chains of tracks.
package tracks

import (
	"fmt"
	"strings"
)

// Snapshot keys for independently entered field measurements, in metres.
const (
	StrideLengthKey = "strideLength"
	PaceLengthKey   = "paceLength"
)

// CmToM converts scene coordinates (centimetres) to metres.
const CmToM = 0.01

// SiteMap is an excavation site map. The transform parameters are carried for
// enumeration only.
type SiteMap struct {
	ID           int64
	Filename     string
	FederalEast  int
	FederalNorth int
	XTranslate   float64
	ZTranslate   float64
	Scale        float64
	Hidden       bool
}

// Site is the three letter site abbreviation encoded in the filename, e.g.
// "BEB" for "BEB_500 Sitemap.ai".
func (s *SiteMap) Site() string {
	if len(s.Filename) < 3 {
		return s.Filename
	}
	return strings.ToUpper(s.Filename[:3])
}

// Trackway is the set of series left by one trackmaker.
type Trackway struct {
	ID        int64
	SiteMapID int64
	Type      string // e.g. "S"
	Number    string // e.g. "1"
	Hidden    bool
}

// Name is the trackway specifier, e.g. "S1".
func (t *Trackway) Name() string { return t.Type + t.Number }

// Series is one foot's chain of tracks (left/right, pes/manus).
type Series struct {
	ID         int64
	TrackwayID int64
	Left       bool
	Pes        bool
}

// Name is the two letter limb code, e.g. "LP" for left pes.
func (s *Series) Name() string { return limbCode(s.Left, s.Pes) }

// Track is a single footprint record. X and Z are scene coordinates in
// centimetres; uncertainties are fractional metres.
type Track struct {
	UID               string
	Next              string
	Site              string
	Level             string
	Sector            string
	TrackwayType      string
	TrackwayNumber    string
	Left              bool
	Pes               bool
	Number            int
	X                 float64
	Z                 float64
	Width             float64
	Length            float64
	WidthUncertainty  float64
	LengthUncertainty float64
	Hidden            bool
	Snapshot          map[string]float64
}

// Name is the track's series-local name, e.g. "LP3".
func (t *Track) Name() string {
	return fmt.Sprintf("%s%d", limbCode(t.Left, t.Pes), t.Number)
}

// Fingerprint is the human readable composite used in diagnostics.
func (t *Track) Fingerprint() string {
	return fmt.Sprintf("%s-%s-%s-%s%s-%s",
		t.Site, t.Level, t.Sector, t.TrackwayType, t.TrackwayNumber, t.Name())
}

// SnapshotValue returns the measurement stored under key, if any.
func (t *Track) SnapshotValue(key string) (float64, bool) {
	if t.Snapshot == nil {
		return 0, false
	}
	v, ok := t.Snapshot[key]
	return v, ok
}

// PositionM returns the track position in metres.
func (t *Track) PositionM() (x, z float64) {
	return CmToM * t.X, CmToM * t.Z
}

func limbCode(left, pes bool) string {
	side, limb := "R", "M"
	if left {
		side = "L"
	}
	if pes {
		limb = "P"
	}
	return side + limb
}
