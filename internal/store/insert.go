package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/user/trackway_analyzer_go/internal/tracks"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertSiteMap stores sm and sets its ID.
func (s *Store) InsertSiteMap(ctx context.Context, sm *tracks.SiteMap) error {
	return insertSiteMap(ctx, s.db, sm)
}

// InsertTrackway stores tw under its site map and sets its ID.
func (s *Store) InsertTrackway(ctx context.Context, tw *tracks.Trackway) error {
	return insertTrackway(ctx, s.db, tw)
}

// InsertSeries stores sr at position within its trackway and sets its ID.
func (s *Store) InsertSeries(ctx context.Context, sr *tracks.Series, position int) error {
	return insertSeries(ctx, s.db, sr, position)
}

// InsertTrack stores t at position within series seriesID, with its
// snapshot data.
func (s *Store) InsertTrack(ctx context.Context, seriesID int64, position int, t *tracks.Track) error {
	return insertTrack(ctx, s.db, seriesID, position, t)
}

func insertSiteMap(ctx context.Context, db execer, sm *tracks.SiteMap) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO sitemaps (filename, federal_east, federal_north, x_translate, z_translate, scale, hidden)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sm.Filename, sm.FederalEast, sm.FederalNorth, sm.XTranslate, sm.ZTranslate, sm.Scale, sm.Hidden)
	if err != nil {
		return fmt.Errorf("store: insert sitemap %s: %w", sm.Filename, err)
	}
	sm.ID, err = res.LastInsertId()
	return err
}

func insertTrackway(ctx context.Context, db execer, tw *tracks.Trackway) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO trackways (sitemap_id, type, number, hidden) VALUES (?, ?, ?, ?)`,
		tw.SiteMapID, tw.Type, tw.Number, tw.Hidden)
	if err != nil {
		return fmt.Errorf("store: insert trackway %s: %w", tw.Name(), err)
	}
	tw.ID, err = res.LastInsertId()
	return err
}

func insertSeries(ctx context.Context, db execer, sr *tracks.Series, position int) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO series (trackway_id, is_left, is_pes, position) VALUES (?, ?, ?, ?)`,
		sr.TrackwayID, sr.Left, sr.Pes, position)
	if err != nil {
		return fmt.Errorf("store: insert series %s: %w", sr.Name(), err)
	}
	sr.ID, err = res.LastInsertId()
	return err
}

func insertTrack(ctx context.Context, db execer, seriesID int64, position int, t *tracks.Track) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tracks (uid, series_id, position, next, site, level, sector,
			trackway_type, trackway_number, is_left, is_pes, number, x, z,
			width, length, width_uncertainty, length_uncertainty, hidden)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UID, seriesID, position, t.Next, t.Site, t.Level, t.Sector,
		t.TrackwayType, t.TrackwayNumber, t.Left, t.Pes, t.Number, t.X, t.Z,
		t.Width, t.Length, t.WidthUncertainty, t.LengthUncertainty, t.Hidden)
	if err != nil {
		return fmt.Errorf("store: insert track %s: %w", t.UID, err)
	}
	for key, v := range t.Snapshot {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO snapshot_data (track_uid, key, value) VALUES (?, ?, ?)`, t.UID, key, v); err != nil {
			return fmt.Errorf("store: insert snapshot %s/%s: %w", t.UID, key, err)
		}
	}
	return nil
}

// Import copies every site map, trackway (hidden included), series and
// track of src in one transaction. It returns the number of tracks copied.
func (s *Store) Import(ctx context.Context, src tracks.Source) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	n := 0
	sms, err := src.SiteMaps(ctx)
	if err != nil {
		return 0, err
	}
	for _, sm := range sms {
		smCopy := *sm
		if err := insertSiteMap(ctx, tx, &smCopy); err != nil {
			return 0, err
		}
		tws, err := src.Trackways(ctx, sm, true)
		if err != nil {
			return 0, err
		}
		for _, tw := range tws {
			twCopy := *tw
			twCopy.SiteMapID = smCopy.ID
			if err := insertTrackway(ctx, tx, &twCopy); err != nil {
				return 0, err
			}
			series, err := src.Series(ctx, tw)
			if err != nil {
				return 0, err
			}
			for i, sr := range series {
				srCopy := *sr
				srCopy.TrackwayID = twCopy.ID
				if err := insertSeries(ctx, tx, &srCopy, i); err != nil {
					return 0, err
				}
				ts, err := src.Tracks(ctx, sr)
				if err != nil {
					return 0, err
				}
				for j, t := range ts {
					if err := insertTrack(ctx, tx, srCopy.ID, j, t); err != nil {
						return 0, err
					}
					n++
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return n, nil
}
