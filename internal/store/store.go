// Package store is the SQLite-backed tracks.Source.
//
//	st, err := store.Open("tracks.db")
//	defer st.Close()
//	rep, err := analysis.New("validation", st, ws, ...).Run(ctx)
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/user/trackway_analyzer_go/internal/tracks"
)

const schema = `
CREATE TABLE IF NOT EXISTS sitemaps (
	id            INTEGER PRIMARY KEY,
	filename      TEXT    NOT NULL UNIQUE,
	federal_east  INTEGER NOT NULL DEFAULT 0,
	federal_north INTEGER NOT NULL DEFAULT 0,
	x_translate   REAL    NOT NULL DEFAULT 0,
	z_translate   REAL    NOT NULL DEFAULT 0,
	scale         REAL    NOT NULL DEFAULT 0,
	hidden        INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS trackways (
	id         INTEGER PRIMARY KEY,
	sitemap_id INTEGER NOT NULL REFERENCES sitemaps(id) ON DELETE CASCADE,
	type       TEXT    NOT NULL,
	number     TEXT    NOT NULL,
	hidden     INTEGER NOT NULL DEFAULT 0,
	UNIQUE (sitemap_id, type, number)
);
CREATE TABLE IF NOT EXISTS series (
	id          INTEGER PRIMARY KEY,
	trackway_id INTEGER NOT NULL REFERENCES trackways(id) ON DELETE CASCADE,
	is_left     INTEGER NOT NULL,
	is_pes      INTEGER NOT NULL,
	position    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS tracks (
	uid                TEXT    PRIMARY KEY,
	series_id          INTEGER NOT NULL REFERENCES series(id) ON DELETE CASCADE,
	position           INTEGER NOT NULL,
	next               TEXT    NOT NULL DEFAULT '',
	site               TEXT    NOT NULL DEFAULT '',
	level              TEXT    NOT NULL DEFAULT '',
	sector             TEXT    NOT NULL DEFAULT '',
	trackway_type      TEXT    NOT NULL DEFAULT '',
	trackway_number    TEXT    NOT NULL DEFAULT '',
	is_left            INTEGER NOT NULL,
	is_pes             INTEGER NOT NULL,
	number             INTEGER NOT NULL DEFAULT 0,
	x                  REAL    NOT NULL DEFAULT 0,
	z                  REAL    NOT NULL DEFAULT 0,
	width              REAL    NOT NULL DEFAULT 0,
	length             REAL    NOT NULL DEFAULT 0,
	width_uncertainty  REAL    NOT NULL DEFAULT 0,
	length_uncertainty REAL    NOT NULL DEFAULT 0,
	hidden             INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS tracks_series ON tracks (series_id, position);
CREATE TABLE IF NOT EXISTS snapshot_data (
	track_uid TEXT NOT NULL REFERENCES tracks(uid) ON DELETE CASCADE,
	key       TEXT NOT NULL,
	value     REAL NOT NULL,
	PRIMARY KEY (track_uid, key)
);
`

// Store reads trackway data from SQLite.
type Store struct {
	db *sql.DB
}

var _ tracks.Source = (*Store)(nil)

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return setup(db)
}

// OpenMemory opens a private in-memory database. A single connection keeps
// every query on the same database.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return setup(db)
}

func setup(db *sql.DB) (*Store, error) {
	for _, p := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) SiteMaps(ctx context.Context) ([]*tracks.SiteMap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, federal_east, federal_north, x_translate, z_translate, scale, hidden
		FROM sitemaps ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: query sitemaps: %w", err)
	}
	defer rows.Close()

	var out []*tracks.SiteMap
	for rows.Next() {
		sm := &tracks.SiteMap{}
		if err := rows.Scan(&sm.ID, &sm.Filename, &sm.FederalEast, &sm.FederalNorth,
			&sm.XTranslate, &sm.ZTranslate, &sm.Scale, &sm.Hidden); err != nil {
			return nil, fmt.Errorf("store: scan sitemap: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *Store) Trackways(ctx context.Context, sm *tracks.SiteMap, includeHidden bool) ([]*tracks.Trackway, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sitemap_id, type, number, hidden
		FROM trackways
		WHERE sitemap_id = ? AND (? OR hidden = 0)
		ORDER BY type, CAST(number AS INTEGER), number`, sm.ID, includeHidden)
	if err != nil {
		return nil, fmt.Errorf("store: query trackways of %s: %w", sm.Filename, err)
	}
	defer rows.Close()

	var out []*tracks.Trackway
	for rows.Next() {
		tw := &tracks.Trackway{}
		if err := rows.Scan(&tw.ID, &tw.SiteMapID, &tw.Type, &tw.Number, &tw.Hidden); err != nil {
			return nil, fmt.Errorf("store: scan trackway: %w", err)
		}
		out = append(out, tw)
	}
	return out, rows.Err()
}

func (s *Store) Series(ctx context.Context, tw *tracks.Trackway) ([]*tracks.Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trackway_id, is_left, is_pes
		FROM series WHERE trackway_id = ? ORDER BY position, id`, tw.ID)
	if err != nil {
		return nil, fmt.Errorf("store: query series of %s: %w", tw.Name(), err)
	}
	defer rows.Close()

	var out []*tracks.Series
	for rows.Next() {
		sr := &tracks.Series{}
		if err := rows.Scan(&sr.ID, &sr.TrackwayID, &sr.Left, &sr.Pes); err != nil {
			return nil, fmt.Errorf("store: scan series: %w", err)
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (s *Store) Tracks(ctx context.Context, sr *tracks.Series) ([]*tracks.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, next, site, level, sector, trackway_type, trackway_number,
		       is_left, is_pes, number, x, z, width, length,
		       width_uncertainty, length_uncertainty, hidden
		FROM tracks WHERE series_id = ? ORDER BY position`, sr.ID)
	if err != nil {
		return nil, fmt.Errorf("store: query tracks of series %d: %w", sr.ID, err)
	}
	defer rows.Close()

	var out []*tracks.Track
	byUID := make(map[string]*tracks.Track)
	for rows.Next() {
		t := &tracks.Track{}
		if err := rows.Scan(&t.UID, &t.Next, &t.Site, &t.Level, &t.Sector,
			&t.TrackwayType, &t.TrackwayNumber, &t.Left, &t.Pes, &t.Number,
			&t.X, &t.Z, &t.Width, &t.Length,
			&t.WidthUncertainty, &t.LengthUncertainty, &t.Hidden); err != nil {
			return nil, fmt.Errorf("store: scan track: %w", err)
		}
		out = append(out, t)
		byUID[t.UID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadSnapshots(ctx, sr.ID, byUID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) loadSnapshots(ctx context.Context, seriesID int64, byUID map[string]*tracks.Track) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.track_uid, d.key, d.value
		FROM snapshot_data d JOIN tracks t ON t.uid = d.track_uid
		WHERE t.series_id = ?`, seriesID)
	if err != nil {
		return fmt.Errorf("store: query snapshot data: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uid, key string
		var v float64
		if err := rows.Scan(&uid, &key, &v); err != nil {
			return fmt.Errorf("store: scan snapshot data: %w", err)
		}
		t, ok := byUID[uid]
		if !ok {
			continue
		}
		if t.Snapshot == nil {
			t.Snapshot = make(map[string]float64)
		}
		t.Snapshot[key] = v
	}
	return rows.Err()
}
