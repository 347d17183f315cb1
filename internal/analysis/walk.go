package analysis

import (
	"context"
	"fmt"

	"github.com/user/trackway_analyzer_go/internal/tracks"
)

// walk visits every site map, trackway, series and track of env in source
// order, descending into a branch only when its hook returns true.
func walk(ctx context.Context, env *Env, st Stage) error {
	for _, sm := range env.SiteMaps {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := st.VisitSiteMap(ctx, sm)
		if err != nil {
			return fmt.Errorf("site map %s: %w", sm.Filename, err)
		}
		if !ok {
			continue
		}

		tws, err := env.Source.Trackways(ctx, sm, env.IncludeHidden)
		if err != nil {
			return fmt.Errorf("load trackways of %s: %w", sm.Filename, err)
		}
		for _, tw := range tws {
			if err := walkTrackway(ctx, env, st, sm, tw); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkTrackway(ctx context.Context, env *Env, st Stage, sm *tracks.SiteMap, tw *tracks.Trackway) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	site := sm.Filename
	ok, err := st.VisitTrackway(ctx, sm, tw)
	if err != nil {
		return fmt.Errorf("trackway %s/%s: %w", site, tw.Name(), err)
	}
	if !ok {
		return nil
	}

	series, err := env.Source.Series(ctx, tw)
	if err != nil {
		return fmt.Errorf("load series of %s/%s: %w", site, tw.Name(), err)
	}
	for _, s := range series {
		ts, err := env.Source.Tracks(ctx, s)
		if err != nil {
			return fmt.Errorf("load tracks of %s/%s/%s: %w", site, tw.Name(), s.Name(), err)
		}
		if len(ts) == 0 {
			continue
		}
		ok, err := st.VisitSeries(ctx, tw, s, ts)
		if err != nil {
			return fmt.Errorf("series %s/%s/%s: %w", site, tw.Name(), s.Name(), err)
		}
		if !ok {
			continue
		}
		for _, t := range ts {
			if err := st.VisitTrack(ctx, s, t); err != nil {
				return fmt.Errorf("track %s: %w", t.UID, err)
			}
		}
	}
	return nil
}
