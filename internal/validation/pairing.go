package validation

import (
	"sort"

	"github.com/user/trackway_analyzer_go/internal/tracks"
)

// Scope selects which tracks a Pairing draws its pairs from.
type Scope int

const (
	// PerSeries pairs tracks within one series (same foot).
	PerSeries Scope = iota
	// Interleaved pairs tracks across the left and right series of the same
	// limb, merged in track-number order.
	Interleaved
)

func (s Scope) String() string {
	if s == Interleaved {
		return "interleaved"
	}
	return "per-series"
}

// Pairing declares how a length stage forms the track pairs it measures.
type Pairing struct {
	Scope Scope
	// Step is the index distance between the tracks of a pair: 1 pairs
	// adjacent tracks, 2 skips one.
	Step int
}

// SeriesPairing is the stride pairing: adjacent tracks of one series.
func SeriesPairing() Pairing { return Pairing{Scope: PerSeries, Step: 1} }

// AlternatingPairing is the pace pairing: successive opposite-side tracks of
// the same limb.
func AlternatingPairing() Pairing { return Pairing{Scope: Interleaved, Step: 1} }

// checksLinks reports whether pairs follow next links, which only holds for
// adjacent tracks within a series.
func (p Pairing) checksLinks() bool { return p.Scope == PerSeries && p.step() == 1 }

func (p Pairing) step() int {
	if p.Step < 1 {
		return 1
	}
	return p.Step
}

// pair is one measured track pair. The measurement is read from First.
type pair struct {
	First, Second *tracks.Track
}

// seriesPairs returns the pairs of one series' ordered tracks.
func (p Pairing) seriesPairs(ts []*tracks.Track) []pair {
	step := p.step()
	var out []pair
	for i := 0; i+step < len(ts); i++ {
		out = append(out, pair{First: ts[i], Second: ts[i+step]})
	}
	return out
}

// interleave merges the left and right tracks of one limb by track number.
// Equal numbers keep the left track first.
func interleave(left, right []*tracks.Track) []*tracks.Track {
	merged := make([]*tracks.Track, 0, len(left)+len(right))
	merged = append(merged, left...)
	merged = append(merged, right...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Number < merged[j].Number })
	return merged
}

// interleavedPairs returns the pairs of merged tracks. An odd step pairs
// opposite sides and an even step the same side. Pairs breaking that rule,
// left by a missing track, are returned separately as mismatched.
func (p Pairing) interleavedPairs(merged []*tracks.Track) (pairs, mismatched []pair) {
	step := p.step()
	opposite := step%2 == 1
	for i := 0; i+step < len(merged); i++ {
		a, b := merged[i], merged[i+step]
		if (a.Left != b.Left) != opposite {
			mismatched = append(mismatched, pair{First: a, Second: b})
			continue
		}
		pairs = append(pairs, pair{First: a, Second: b})
	}
	return pairs, mismatched
}
