package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/trackway_analyzer_go/internal/tracks"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	st, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seed(t *testing.T, st *Store) *tracks.Trackway {
	t.Helper()
	ctx := context.Background()
	sm := &tracks.SiteMap{Filename: "BEB_500", Scale: 50}
	if err := st.InsertSiteMap(ctx, sm); err != nil {
		t.Fatal(err)
	}
	for _, tw := range []*tracks.Trackway{
		{SiteMapID: sm.ID, Type: "S", Number: "10"},
		{SiteMapID: sm.ID, Type: "S", Number: "2", Hidden: true},
		{SiteMapID: sm.ID, Type: "S", Number: "1"},
	} {
		if err := st.InsertTrackway(ctx, tw); err != nil {
			t.Fatal(err)
		}
	}
	tws, err := st.Trackways(ctx, sm, false)
	if err != nil {
		t.Fatal(err)
	}
	return tws[0]
}

func TestOpen_Pragmas(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "db", "tracks.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	var mode string
	if err := st.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode=%q", mode)
	}
	var fk int
	if err := st.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil || fk != 1 {
		t.Fatalf("foreign_keys=%d err=%v", fk, err)
	}
}

func TestTrackways_OrderAndHidden(t *testing.T) {
	st := openMemory(t)
	seed(t, st)
	ctx := context.Background()

	sms, err := st.SiteMaps(ctx)
	if err != nil || len(sms) != 1 || sms[0].Scale != 50 {
		t.Fatalf("site maps=%v err=%v", sms, err)
	}
	names := func(includeHidden bool) string {
		tws, err := st.Trackways(ctx, sms[0], includeHidden)
		if err != nil {
			t.Fatal(err)
		}
		var out []string
		for _, tw := range tws {
			out = append(out, tw.Name())
		}
		return strings.Join(out, ",")
	}
	if got := names(false); got != "S1,S10" {
		t.Fatalf("visible=%s", got)
	}
	if got := names(true); got != "S1,S2,S10" {
		t.Fatalf("all=%s", got)
	}
}

func TestTracks_PositionOrderAndSnapshots(t *testing.T) {
	st := openMemory(t)
	tw := seed(t, st)
	ctx := context.Background()

	rp := &tracks.Series{TrackwayID: tw.ID, Pes: true}
	lp := &tracks.Series{TrackwayID: tw.ID, Left: true, Pes: true}
	if err := st.InsertSeries(ctx, rp, 1); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertSeries(ctx, lp, 0); err != nil {
		t.Fatal(err)
	}
	second := &tracks.Track{UID: "b", Left: true, Pes: true, Number: 2, X: 100,
		Snapshot: map[string]float64{tracks.StrideLengthKey: 1.01}}
	first := &tracks.Track{UID: "a", Next: "b", Left: true, Pes: true, Number: 1,
		WidthUncertainty: 0.02, Snapshot: map[string]float64{tracks.StrideLengthKey: 0.99, tracks.PaceLengthKey: 0.5}}
	if err := st.InsertTrack(ctx, lp.ID, 1, second); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertTrack(ctx, lp.ID, 0, first); err != nil {
		t.Fatal(err)
	}

	series, err := st.Series(ctx, tw)
	if err != nil || len(series) != 2 || series[0].Name() != "LP" {
		t.Fatalf("series=%v err=%v", series, err)
	}
	ts, err := st.Tracks(ctx, series[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 2 || ts[0].UID != "a" || ts[1].UID != "b" {
		t.Fatalf("tracks=%v", ts)
	}
	if !ts[0].Left || !ts[0].Pes || ts[0].WidthUncertainty != 0.02 || ts[0].Next != "b" {
		t.Fatalf("track a=%+v", ts[0])
	}
	if v, ok := ts[0].SnapshotValue(tracks.PaceLengthKey); !ok || v != 0.5 {
		t.Fatalf("pace=%v %v", v, ok)
	}
	if v, _ := ts[1].SnapshotValue(tracks.StrideLengthKey); v != 1.01 {
		t.Fatalf("stride=%v", v)
	}

	if err := st.InsertTrack(ctx, lp.ID, 2, &tracks.Track{UID: "a"}); err == nil {
		t.Fatalf("duplicate uid must fail")
	}
}

func TestImport_FromMemory(t *testing.T) {
	m := tracks.NewMemory()
	sm := m.AddSiteMap(&tracks.SiteMap{Filename: "TCH_1000"})
	tw := m.AddTrackway(&tracks.Trackway{SiteMapID: sm.ID, Type: "S", Number: "1"})
	hidden := m.AddTrackway(&tracks.Trackway{SiteMapID: sm.ID, Type: "S", Number: "2", Hidden: true})
	m.AddSeries(&tracks.Series{TrackwayID: tw.ID, Left: true, Pes: true},
		&tracks.Track{UID: "a", Next: "b", Number: 1}, &tracks.Track{UID: "b", Number: 2})
	m.AddSeries(&tracks.Series{TrackwayID: hidden.ID, Pes: true}, &tracks.Track{UID: "c", Number: 1})

	st := openMemory(t)
	ctx := context.Background()
	n, err := st.Import(ctx, m)
	if err != nil || n != 3 {
		t.Fatalf("Import=%d err=%v", n, err)
	}

	sms, _ := st.SiteMaps(ctx)
	tws, _ := st.Trackways(ctx, sms[0], true)
	if len(tws) != 2 || !tws[1].Hidden {
		t.Fatalf("trackways=%v", tws)
	}
	series, _ := st.Series(ctx, tws[0])
	ts, _ := st.Tracks(ctx, series[0])
	if len(ts) != 2 || ts[0].UID != "a" || ts[1].UID != "b" {
		t.Fatalf("tracks=%v", ts)
	}
}
