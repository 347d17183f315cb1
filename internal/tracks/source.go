package tracks

import (
	"context"
	"fmt"
	"sort"
)

// Source is the ordered read interface over stored trackway data. Every
// method returns records in a stable order.
type Source interface {
	SiteMaps(ctx context.Context) ([]*SiteMap, error)
	Trackways(ctx context.Context, sm *SiteMap, includeHidden bool) ([]*Trackway, error)
	Series(ctx context.Context, tw *Trackway) ([]*Series, error)
	Tracks(ctx context.Context, s *Series) ([]*Track, error)
}

// Memory is a Source held entirely in memory, in insertion order.
type Memory struct {
	siteMaps  []*SiteMap
	trackways map[int64][]*Trackway
	series    map[int64][]*Series
	tracks    map[int64][]*Track
	nextID    int64
}

// NewMemory returns an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{
		trackways: make(map[int64][]*Trackway),
		series:    make(map[int64][]*Series),
		tracks:    make(map[int64][]*Track),
	}
}

func (m *Memory) id(current int64) int64 {
	if current != 0 {
		if current > m.nextID {
			m.nextID = current
		}
		return current
	}
	m.nextID++
	return m.nextID
}

// AddSiteMap registers sm, assigning an ID when it has none.
func (m *Memory) AddSiteMap(sm *SiteMap) *SiteMap {
	sm.ID = m.id(sm.ID)
	m.siteMaps = append(m.siteMaps, sm)
	return sm
}

// AddTrackway registers tw under its site map.
func (m *Memory) AddTrackway(tw *Trackway) *Trackway {
	tw.ID = m.id(tw.ID)
	m.trackways[tw.SiteMapID] = append(m.trackways[tw.SiteMapID], tw)
	return tw
}

// AddSeries registers s under its trackway with its ordered tracks.
func (m *Memory) AddSeries(s *Series, ts ...*Track) *Series {
	s.ID = m.id(s.ID)
	m.series[s.TrackwayID] = append(m.series[s.TrackwayID], s)
	m.tracks[s.ID] = append(m.tracks[s.ID], ts...)
	return s
}

// AppendTracks adds tracks to the end of an existing series.
func (m *Memory) AppendTracks(s *Series, ts ...*Track) {
	m.tracks[s.ID] = append(m.tracks[s.ID], ts...)
}

// SortTracks orders every series by track number.
func (m *Memory) SortTracks() {
	for _, ts := range m.tracks {
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].Number < ts[j].Number })
	}
}

func (m *Memory) SiteMaps(ctx context.Context) ([]*SiteMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]*SiteMap(nil), m.siteMaps...), nil
}

func (m *Memory) Trackways(ctx context.Context, sm *SiteMap, includeHidden bool) ([]*Trackway, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sm == nil {
		return nil, fmt.Errorf("tracks: nil site map")
	}
	var out []*Trackway
	for _, tw := range m.trackways[sm.ID] {
		if tw.Hidden && !includeHidden {
			continue
		}
		out = append(out, tw)
	}
	return out, nil
}

func (m *Memory) Series(ctx context.Context, tw *Trackway) ([]*Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]*Series(nil), m.series[tw.ID]...), nil
}

func (m *Memory) Tracks(ctx context.Context, s *Series) ([]*Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]*Track(nil), m.tracks[s.ID]...), nil
}
