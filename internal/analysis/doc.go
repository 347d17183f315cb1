// Package analysis is the staged traversal framework: a Stage visits site
// maps, trackways, series and tracks in source order between a pre and a
// post phase, and an Analyzer runs stages one after another against shared
// Services.
//
// A stage embeds *Base and overrides only the hooks it needs:
//
//	type widthStage struct {
//		*analysis.Base
//	}
//
//	func (s *widthStage) VisitTrack(ctx context.Context, _ *tracks.Series, t *tracks.Track) error {
//		s.Cache().Inc("tracks", 1)
//		return nil
//	}
package analysis
