package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/trackway_analyzer_go/internal/tracks"
)

var (
	trackwayPattern = regexp.MustCompile(`^([^0-9\s]+)\s*([^(\s]+)`)
	namePattern     = regexp.MustCompile(`^([LR])([PM])(\d+)$`)
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("parser: missing required column")

// ParseTrackway splits a trackway specifier such as "S 1" or "S1" into its
// type and number.
func ParseTrackway(s string) (typ, number string, err error) {
	m := trackwayPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return "", "", fmt.Errorf("invalid trackway %q", s)
	}
	return m[1], m[2], nil
}

// ParseTrackName splits a track name such as "LP3" into side, limb and
// number.
func ParseTrackName(s string) (left, pes bool, number int, err error) {
	m := namePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return false, false, 0, fmt.Errorf("invalid track name %q", s)
	}
	number, err = strconv.Atoi(m[3])
	if err != nil {
		return false, false, 0, fmt.Errorf("invalid track number in %q: %w", s, err)
	}
	return m[1] == "L", m[2] == "P", number, nil
}

// ParseTracks reads a track CSV file. See Parse.
func ParseTracks(path string) (*ParsedTracks, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads header-named track rows from r into an in-memory source. Rows
// that fail validation are reported in ParseErrors and skipped; empty rows
// are ignored. Series are grouped by site map, trackway, side and limb and
// ordered by track number.
func Parse(r io.Reader) (*ParsedTracks, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	b := newBuilder()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV data: %w", err)
		}
		if isEmpty(row) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rec := record{row: row, cols: cols}
		t, siteMap, err := rec.track()
		if err != nil {
			b.out.ParseErrors = append(b.out.ParseErrors, fmt.Sprintf("Row %d: %v", line, err))
			continue
		}
		if err := b.add(siteMap, t); err != nil {
			b.out.ParseErrors = append(b.out.ParseErrors, fmt.Sprintf("Row %d: %v", line, err))
		}
	}
	return b.finish(), nil
}

func isEmpty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// record is one data row addressed by column name.
type record struct {
	row  []string
	cols map[string]int
}

func (r record) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r record) float(col string, required bool) (float64, bool, error) {
	s := r.get(col)
	if s == "" {
		if required {
			return 0, false, fmt.Errorf("missing %s", col)
		}
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q", col, s)
	}
	return v, true, nil
}

func (r record) track() (*tracks.Track, string, error) {
	t := &tracks.Track{
		UID:    r.get(ColUID),
		Next:   r.get(ColNext),
		Site:   strings.ToUpper(r.get(ColSite)),
		Level:  r.get(ColLevel),
		Sector: strings.ToUpper(r.get(ColSector)),
	}
	if t.UID == "" {
		return nil, "", fmt.Errorf("missing %s", ColUID)
	}

	var err error
	if t.TrackwayType, t.TrackwayNumber, err = ParseTrackway(r.get(ColTrackway)); err != nil {
		return nil, "", fmt.Errorf("track %s: %w", t.UID, err)
	}
	if t.Left, t.Pes, t.Number, err = ParseTrackName(r.get(ColName)); err != nil {
		return nil, "", fmt.Errorf("track %s: %w", t.UID, err)
	}

	fields := []struct {
		col      string
		dst      *float64
		required bool
	}{
		{ColX, &t.X, true},
		{ColZ, &t.Z, true},
		{ColWidth, &t.Width, false},
		{ColLength, &t.Length, false},
		{ColWidthUncertainty, &t.WidthUncertainty, false},
		{ColLengthUncertainty, &t.LengthUncertainty, false},
	}
	for _, f := range fields {
		v, _, err := r.float(f.col, f.required)
		if err != nil {
			return nil, "", fmt.Errorf("track %s: %w", t.UID, err)
		}
		if v < 0 && f.col != ColX && f.col != ColZ {
			return nil, "", fmt.Errorf("track %s: negative %s", t.UID, f.col)
		}
		*f.dst = v
	}

	for _, snap := range [][2]string{
		{ColStrideLength, tracks.StrideLengthKey},
		{ColPaceLength, tracks.PaceLengthKey},
	} {
		col, key := snap[0], snap[1]
		v, ok, err := r.float(col, false)
		if err != nil {
			return nil, "", fmt.Errorf("track %s: %w", t.UID, err)
		}
		if ok {
			if t.Snapshot == nil {
				t.Snapshot = make(map[string]float64)
			}
			t.Snapshot[key] = v
		}
	}

	if s := r.get(ColHidden); s != "" {
		if t.Hidden, err = strconv.ParseBool(s); err != nil {
			return nil, "", fmt.Errorf("track %s: invalid %s %q", t.UID, ColHidden, s)
		}
	}

	siteMap := r.get(ColSiteMap)
	if siteMap == "" {
		siteMap = t.Site
		if t.Level != "" {
			siteMap += "_" + t.Level
		}
	}
	if siteMap == "" {
		return nil, "", fmt.Errorf("track %s: no %s or %s", t.UID, ColSiteMap, ColSite)
	}
	return t, siteMap, nil
}

type seriesKey struct {
	trackway  *tracks.Trackway
	left, pes bool
}

// builder groups parsed tracks into the site map hierarchy.
type builder struct {
	out       *ParsedTracks
	uids      map[string]bool
	siteMaps  map[string]*tracks.SiteMap
	trackways map[string]*tracks.Trackway
	series    map[seriesKey]*tracks.Series
	visible   map[*tracks.Trackway]bool
}

func newBuilder() *builder {
	return &builder{
		out:       NewParsedTracks(),
		uids:      make(map[string]bool),
		siteMaps:  make(map[string]*tracks.SiteMap),
		trackways: make(map[string]*tracks.Trackway),
		series:    make(map[seriesKey]*tracks.Series),
		visible:   make(map[*tracks.Trackway]bool),
	}
}

func (b *builder) add(siteMap string, t *tracks.Track) error {
	if b.uids[t.UID] {
		return fmt.Errorf("duplicate uid %s", t.UID)
	}
	b.uids[t.UID] = true
	src := b.out.Source

	sm, ok := b.siteMaps[siteMap]
	if !ok {
		sm = src.AddSiteMap(&tracks.SiteMap{Filename: siteMap})
		b.siteMaps[siteMap] = sm
		b.out.SiteMaps = append(b.out.SiteMaps, siteMap)
	}

	twKey := siteMap + "/" + t.TrackwayType + t.TrackwayNumber
	tw, ok := b.trackways[twKey]
	if !ok {
		tw = src.AddTrackway(&tracks.Trackway{SiteMapID: sm.ID, Type: t.TrackwayType, Number: t.TrackwayNumber})
		b.trackways[twKey] = tw
	}
	if !t.Hidden {
		b.visible[tw] = true
	}

	key := seriesKey{trackway: tw, left: t.Left, pes: t.Pes}
	s, ok := b.series[key]
	if !ok {
		b.series[key] = src.AddSeries(&tracks.Series{TrackwayID: tw.ID, Left: t.Left, Pes: t.Pes}, t)
	} else {
		src.AppendTracks(s, t)
	}
	b.out.Tracks++
	return nil
}

// finish orders series by track number and hides trackways whose every
// track is hidden.
func (b *builder) finish() *ParsedTracks {
	b.out.Source.SortTracks()
	for _, tw := range b.trackways {
		tw.Hidden = !b.visible[tw]
	}
	return b.out
}
