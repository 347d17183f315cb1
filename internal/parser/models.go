package parser

import "github.com/user/trackway_analyzer_go/internal/tracks"

// Column names recognised in a track CSV header. Matching ignores case and
// surrounding space.
const (
	ColUID               = "uid"
	ColNext              = "next"
	ColSite              = "site"
	ColLevel             = "level"
	ColSector            = "sector"
	ColTrackway          = "trackway"
	ColName              = "name"
	ColX                 = "x"
	ColZ                 = "z"
	ColWidth             = "width"
	ColLength            = "length"
	ColWidthUncertainty  = "width_uncertainty"
	ColLengthUncertainty = "length_uncertainty"
	ColHidden            = "hidden"
	ColStrideLength      = "stride_length"
	ColPaceLength        = "pace_length"
	ColSiteMap           = "sitemap"
)

// RequiredColumns must all be present in the header.
var RequiredColumns = []string{ColUID, ColTrackway, ColName, ColX, ColZ}

// ParsedTracks is the result of loading a track CSV.
type ParsedTracks struct {
	Source      *tracks.Memory
	Tracks      int
	SiteMaps    []string // in first-seen order
	ParseErrors []string // rows that were skipped, and why
}

// NewParsedTracks returns an empty result.
func NewParsedTracks() *ParsedTracks {
	return &ParsedTracks{
		Source:      tracks.NewMemory(),
		SiteMaps:    make([]string, 0),
		ParseErrors: make([]string, 0),
	}
}
