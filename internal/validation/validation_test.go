package validation

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/trackway_analyzer_go/internal/analysis"
	"github.com/user/trackway_analyzer_go/internal/logging"
	"github.com/user/trackway_analyzer_go/internal/numeric"
	"github.com/user/trackway_analyzer_go/internal/tracks"
)

func track(uid, next string, left, pes bool, number int, x, z float64) *tracks.Track {
	return &tracks.Track{
		UID:            uid,
		Next:           next,
		Site:           "BEB",
		Level:          "500",
		Sector:         "A",
		TrackwayType:   "S",
		TrackwayNumber: "1",
		Left:           left,
		Pes:            pes,
		Number:         number,
		X:              x,
		Z:              z,
	}
}

func withData(t *tracks.Track, key string, v float64) *tracks.Track {
	if t.Snapshot == nil {
		t.Snapshot = map[string]float64{}
	}
	t.Snapshot[key] = v
	return t
}

type harness struct {
	out string
	log *bytes.Buffer
	rep *analysis.RunReport
	err error
}

func run(t *testing.T, src tracks.Source, stages ...analysis.Stage) *harness {
	t.Helper()
	h := &harness{out: t.TempDir(), log: &bytes.Buffer{}}
	ws := analysis.NewWorkspace(h.out, "", logging.New(h.log, slog.LevelDebug))
	h.rep, h.err = analysis.New("test", src, ws, analysis.WithStages(stages...)).Run(context.Background())
	return h
}

func singleSeries(ts ...*tracks.Track) *tracks.Memory {
	m := tracks.NewMemory()
	sm := m.AddSiteMap(&tracks.SiteMap{Filename: "BEB_500"})
	tw := m.AddTrackway(&tracks.Trackway{SiteMapID: sm.ID, Type: "S", Number: "1"})
	m.AddSeries(&tracks.Series{TrackwayID: tw.ID, Left: true, Pes: true}, ts...)
	return m
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return recs
}

func TestNewEntry_Geometry(t *testing.T) {
	a := track("a", "b", true, true, 1, 0, 0)
	b := track("b", "", true, true, 2, 300, 400)
	e, err := NewEntry(a, b, 4.5)
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	if e.Distance != 5 || e.Delta != 0.5 || e.Fractional != 0.1 {
		t.Fatalf("entry=%+v", e)
	}
	if e.Error != 0 {
		t.Fatalf("error with zero uncertainties = %v", e.Error)
	}
	if e.Classified() {
		t.Fatalf("new entry must not be classified")
	}

	if _, err := NewEntry(a, track("c", "", true, true, 2, 0, 0), 1); !errors.Is(err, numeric.ErrZeroDistance) {
		t.Fatalf("expected ErrZeroDistance, got %v", err)
	}
}

func TestNewEntry_PropagatedError(t *testing.T) {
	a := track("a", "b", true, true, 1, 0, 0)
	b := track("b", "", true, true, 2, 300, 400)
	a.WidthUncertainty, a.LengthUncertainty = 0.03, 0.04 // combined 0.05
	e, err := NewEntry(a, b, 5)
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	// 0.05*3/5 + 0.05*4/5
	if math.Abs(e.Error-0.07) > 1e-12 {
		t.Fatalf("error=%v, want 0.07", e.Error)
	}
}

// Four tracks, three pairs: one without data, one degenerate, one normal
// pair measured 10% short.
func TestStrideLengthStage_EndToEnd(t *testing.T) {
	key := tracks.StrideLengthKey
	t1 := track("t1", "t2", true, true, 1, 0, 0)
	t2 := withData(track("t2", "t3", true, true, 2, 100, 0), key, 1)
	t3 := withData(track("t3", "t4", true, true, 3, 100, 0), key, 4.5)
	t4 := track("t4", "", true, true, 4, 400, 400)

	st := NewStrideLengthStage(DefaultParams())
	h := run(t, singleSeries(t1, t2, t3, t4), st)
	if h.err != nil {
		t.Fatalf("run: %v", h.err)
	}

	if st.NoData() != 1 {
		t.Fatalf("noData=%d", st.NoData())
	}
	entries := st.Entries()
	if len(entries) != 1 || entries[0].Track != t3 {
		t.Fatalf("entries=%v", entries)
	}
	sum, ok := st.Summary()
	if !ok || sum.N != 1 || sum.Uncertainty != 0 {
		t.Fatalf("summary=%+v", sum)
	}
	if got := entries[0].SigmaDev; got != 16.67 {
		t.Fatalf("sigmaDev=%v, want 16.67", got)
	}
	if e, ok := st.Deviation("t3"); !ok || e != entries[0] {
		t.Fatalf("deviation side-table missing t3")
	}

	log := h.log.String()
	if !strings.Contains(log, "[WARNING]: Invalid track separation of 0.0. Ignoring track stage=stride track=BEB-500-A-S1-LP2 uid=t2") {
		t.Fatalf("missing degenerate warning:\n%s", log)
	}
	if !strings.Contains(log, "[WARNING]: Large deviation count exceeds normal distribution expectations.") {
		t.Fatalf("missing outlier-rate warning:\n%s", log)
	}

	recs := readCSV(t, filepath.Join(h.out, "Stride-Length-Deviations.csv"))
	want := [][]string{
		{"UID", "Fingerprint", "Entered (m)", "Measured (m)", "Deviation", "Value (m)"},
		{"t3", "BEB-500-A-S1-LP3", "5", "4.5", "16.67", "0.500 ± 0.000"},
	}
	if len(recs) != 2 {
		t.Fatalf("csv records=%v", recs)
	}
	for i := range want {
		if strings.Join(recs[i], "|") != strings.Join(want[i], "|") {
			t.Fatalf("csv row %d = %v, want %v", i, recs[i], want[i])
		}
	}

	res, _ := h.rep.Stage("stride")
	if strings.Join(res.Footer, "|") != "Processed 1 tracks|1 tracks with no stride data" {
		t.Fatalf("footer=%v", res.Footer)
	}
	merged := filepath.Join(h.out, "Stride-Length.pdf")
	if len(res.Artifacts) != 1 || res.Artifacts[0] != merged {
		t.Fatalf("artifacts=%v", res.Artifacts)
	}
	if _, err := os.Stat(merged); err != nil {
		t.Fatalf("merged histograms: %v", err)
	}
	if tables := st.Tables(); len(tables) != 1 || len(tables[0].Rows) != 1 {
		t.Fatalf("tables=%+v", tables)
	}
}

func TestStrideLengthStage_OnlyDegeneratePairs(t *testing.T) {
	key := tracks.StrideLengthKey
	st := NewStrideLengthStage(DefaultParams())
	h := run(t, singleSeries(
		withData(track("a", "b", true, true, 1, 50, 50), key, 1),
		track("b", "", true, true, 2, 50, 50),
	), st)
	if h.err != nil {
		t.Fatalf("run: %v", h.err)
	}
	if len(st.Entries()) != 0 || st.NoData() != 0 {
		t.Fatalf("entries=%d noData=%d", len(st.Entries()), st.NoData())
	}
	if _, ok := st.Summary(); ok {
		t.Fatalf("no summary expected without entries")
	}
	if !strings.Contains(h.log.String(), "[WARNING]: No stride entries to analyze") {
		t.Fatalf("missing empty warning:\n%s", h.log.String())
	}
	if _, err := os.Stat(filepath.Join(h.out, "Stride-Length-Deviations.csv")); !os.IsNotExist(err) {
		t.Fatalf("no CSV expected, stat err=%v", err)
	}
	res, _ := h.rep.Stage("stride")
	if res.State != analysis.StateComplete || res.Footer[0] != "Processed 0 tracks" {
		t.Fatalf("result=%+v", res)
	}
}

func TestStrideLengthStage_BrokenLinkStillMeasured(t *testing.T) {
	key := tracks.StrideLengthKey
	st := NewStrideLengthStage(DefaultParams())
	h := run(t, singleSeries(
		withData(track("a", "zzz", true, true, 1, 0, 0), key, 3),
		track("b", "", true, true, 2, 300, 0),
	), st)
	if h.err != nil {
		t.Fatalf("run: %v", h.err)
	}
	if len(st.Entries()) != 1 {
		t.Fatalf("entries=%d", len(st.Entries()))
	}
	if !strings.Contains(h.log.String(), "[ERROR]: Invalid track ordering (a -> b)") {
		t.Fatalf("missing ordering error:\n%s", h.log.String())
	}
}

func TestStrideLengthStage_CountersResetBetweenRuns(t *testing.T) {
	key := tracks.StrideLengthKey
	src := singleSeries(
		track("a", "b", true, true, 1, 0, 0),
		withData(track("b", "c", true, true, 2, 100, 0), key, 1),
		track("c", "", true, true, 3, 200, 0),
	)
	st := NewStrideLengthStage(DefaultParams())
	for i := 0; i < 2; i++ {
		if h := run(t, src, st); h.err != nil {
			t.Fatalf("run %d: %v", i, h.err)
		}
		if st.NoData() != 1 || len(st.Entries()) != 1 {
			t.Fatalf("run %d: noData=%d entries=%d", i, st.NoData(), len(st.Entries()))
		}
	}
}

func TestPaceLengthStage_Interleaving(t *testing.T) {
	key := tracks.PaceLengthKey
	m := tracks.NewMemory()
	sm := m.AddSiteMap(&tracks.SiteMap{Filename: "BEB_500"})
	tw := m.AddTrackway(&tracks.Trackway{SiteMapID: sm.ID, Type: "S", Number: "1"})
	l1 := withData(track("l1", "l2", true, true, 1, 0, 0), key, 1)
	l2 := withData(track("l2", "", true, true, 2, 200, 0), key, 1)
	r1 := withData(track("r1", "r2", false, true, 1, 100, 0), key, 1)
	r2 := withData(track("r2", "", false, true, 2, 300, 0), key, 1)
	m.AddSeries(&tracks.Series{TrackwayID: tw.ID, Left: true, Pes: true}, l1, l2)
	m.AddSeries(&tracks.Series{TrackwayID: tw.ID, Left: false, Pes: true}, r1, r2)

	st := NewPaceLengthStage(DefaultParams())
	h := run(t, m, st)
	if h.err != nil {
		t.Fatalf("run: %v", h.err)
	}
	entries := st.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries=%d, want 3", len(entries))
	}
	wantNext := map[string]string{"l1": "r1", "r1": "l2", "l2": "r2"}
	for _, e := range entries {
		if wantNext[e.Track.UID] != e.Next.UID {
			t.Fatalf("pair %s -> %s", e.Track.UID, e.Next.UID)
		}
		if e.Distance != 1 || e.Delta != 0 {
			t.Fatalf("entry %s: %+v", e.Track.UID, e)
		}
	}
	if strings.Contains(h.log.String(), "Invalid track ordering") {
		t.Fatalf("pace pairs must not check links:\n%s", h.log.String())
	}
	res, _ := h.rep.Stage("pace")
	if strings.Join(res.Footer, "|") != "Processed 3 tracks|0 tracks with no pace data|0 pairs skipped for unexpected sides" {
		t.Fatalf("footer=%v", res.Footer)
	}
}

func TestPaceLengthStage_GapOnOneSide(t *testing.T) {
	key := tracks.PaceLengthKey
	m := tracks.NewMemory()
	sm := m.AddSiteMap(&tracks.SiteMap{Filename: "BEB_500"})
	tw := m.AddTrackway(&tracks.Trackway{SiteMapID: sm.ID, Type: "S", Number: "1"})
	l1 := withData(track("l1", "l2", true, true, 1, 0, 0), key, 1)
	l2 := withData(track("l2", "l3", true, true, 2, 200, 0), key, 1)
	l3 := withData(track("l3", "", true, true, 3, 400, 0), key, 1)
	r1 := withData(track("r1", "r3", false, true, 1, 100, 0), key, 1)
	r3 := withData(track("r3", "", false, true, 3, 500, 0), key, 1)
	m.AddSeries(&tracks.Series{TrackwayID: tw.ID, Left: true, Pes: true}, l1, l2, l3)
	m.AddSeries(&tracks.Series{TrackwayID: tw.ID, Left: false, Pes: true}, r1, r3)

	st := NewPaceLengthStage(DefaultParams())
	h := run(t, m, st)
	if h.err != nil {
		t.Fatalf("run: %v", h.err)
	}
	if len(st.Entries()) != 3 || st.NoData() != 0 || st.Mismatched() != 1 {
		t.Fatalf("entries=%d noData=%d mismatched=%d", len(st.Entries()), st.NoData(), st.Mismatched())
	}
	if _, ok := st.Deviation("l2"); ok {
		t.Fatalf("l2 -> l3 is a same-side pair and must not be measured")
	}
	out := h.log.String()
	if !strings.Contains(out, "[WARNING]: Unexpected track sides in pair. Ignoring track") ||
		!strings.Contains(out, "uid=l2") || !strings.Contains(out, "next_uid=l3") {
		t.Fatalf("missing warning for the skipped pair:\n%s", out)
	}
	res, _ := h.rep.Stage("pace")
	if len(res.Footer) != 3 || res.Footer[2] != "1 pairs skipped for unexpected sides" {
		t.Fatalf("footer=%v", res.Footer)
	}
}

func TestInterleavedPairs_SkipsSameSideNeighbours(t *testing.T) {
	left := []*tracks.Track{
		track("l1", "", true, true, 1, 0, 0),
		track("l2", "", true, true, 2, 0, 0),
		track("l3", "", true, true, 3, 0, 0),
	}
	right := []*tracks.Track{track("r1", "", false, true, 1, 0, 0)}

	pairs, mismatched := AlternatingPairing().interleavedPairs(interleave(left, right))
	if len(mismatched) != 1 || len(pairs) != 2 {
		t.Fatalf("pairs=%d mismatched=%d", len(pairs), len(mismatched))
	}
	if mismatched[0].First.UID != "l2" || mismatched[0].Second.UID != "l3" {
		t.Fatalf("mismatched pair %+v", mismatched[0])
	}
	if pairs[0].First.UID != "l1" || pairs[0].Second.UID != "r1" ||
		pairs[1].First.UID != "r1" || pairs[1].Second.UID != "l2" {
		t.Fatalf("unexpected pairs %+v %+v", pairs[0], pairs[1])
	}

	twoStep := Pairing{Scope: Interleaved, Step: 2}
	if pairs, mismatched := twoStep.interleavedPairs(interleave(left, right)); len(pairs) != 1 || len(mismatched) != 1 {
		t.Fatalf("step 2: pairs=%d mismatched=%d", len(pairs), len(mismatched))
	}
}

func TestSeriesPairs(t *testing.T) {
	ts := []*tracks.Track{{UID: "a"}, {UID: "b"}, {UID: "c"}, {UID: "d"}}
	if got := SeriesPairing().seriesPairs(ts); len(got) != 3 {
		t.Fatalf("adjacent pairs=%d", len(got))
	}
	skip := Pairing{Scope: PerSeries, Step: 2}
	got := skip.seriesPairs(ts)
	if len(got) != 2 || got[0].Second.UID != "c" || got[1].Second.UID != "d" {
		t.Fatalf("skip-one pairs=%+v", got)
	}
	if skip.checksLinks() || !SeriesPairing().checksLinks() || AlternatingPairing().checksLinks() {
		t.Fatalf("link checks apply only to adjacent per-series pairs")
	}
}

func TestExceedsCoverage(t *testing.T) {
	cases := []struct {
		count, total int
		want         bool
	}{
		{91, 2000, false}, // 4.55% sits on the boundary
		{92, 2000, true},
		{0, 10, false},
		{1, 10, true},
		{0, 0, false},
	}
	for _, c := range cases {
		if got := exceedsCoverage(c.count, c.total, DefaultCoverage); got != c.want {
			t.Fatalf("exceedsCoverage(%d,%d)=%v, want %v", c.count, c.total, got, c.want)
		}
	}
}

func TestTrackwayPlotStage(t *testing.T) {
	key := tracks.StrideLengthKey
	src := singleSeries(
		withData(track("a", "b", true, true, 1, 0, 0), key, 1),
		withData(track("b", "c", true, true, 2, 100, 0), key, 1.5),
		track("c", "", true, true, 3, 200, 0),
	)
	stride := NewStrideLengthStage(DefaultParams())
	plots := NewTrackwayPlotStage(stride)
	if plots.Key() != "stride_plots" {
		t.Fatalf("key=%s", plots.Key())
	}

	h := run(t, src, stride, plots)
	if h.err != nil {
		t.Fatalf("run: %v", h.err)
	}
	if e, ok := stride.Deviation("a"); !ok || plots.value(&tracks.Track{UID: "a"}) != e.SigmaDev {
		t.Fatalf("plot stage does not see stride deviations")
	}
	if !math.IsNaN(plots.value(&tracks.Track{UID: "c"})) {
		t.Fatalf("track without entry must be NaN")
	}

	res, _ := h.rep.Stage("stride_plots")
	if res.State != analysis.StateComplete {
		t.Fatalf("plot stage: %+v", res)
	}
	out := filepath.Join(h.out, "Stride-Length-Trackways.pdf")
	if len(res.Artifacts) != 1 || res.Artifacts[0] != out {
		t.Fatalf("artifacts=%v", res.Artifacts)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("trackway maps: %v", err)
	}
	if res.Footer[0] != "Plotted 1 trackways" {
		t.Fatalf("footer=%v", res.Footer)
	}
}
