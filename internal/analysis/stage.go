package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/trackway_analyzer_go/internal/report"
	"github.com/user/trackway_analyzer_go/internal/tracks"
)

// State is a stage's lifecycle position within one run.
type State string

const (
	StatePending   State = "pending"
	StatePre       State = "pre"
	StateAnalyzing State = "analyzing"
	StatePost      State = "post"
	StateComplete  State = "complete"
	StateAborted   State = "aborted"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool { return s == StateComplete || s == StateAborted }

// Stage is one named analysis pass. Implementations embed *Base, which
// supplies "visit every child" defaults for every hook; a hook returning
// false skips that branch's children.
type Stage interface {
	Key() string
	Label() string

	PreAnalyze(ctx context.Context) error
	VisitSiteMap(ctx context.Context, sm *tracks.SiteMap) (bool, error)
	VisitTrackway(ctx context.Context, sm *tracks.SiteMap, tw *tracks.Trackway) (bool, error)
	VisitSeries(ctx context.Context, tw *tracks.Trackway, s *tracks.Series, ts []*tracks.Track) (bool, error)
	VisitTrack(ctx context.Context, s *tracks.Series, t *tracks.Track) error
	PostAnalyze(ctx context.Context) error

	base() *Base
}

// Footer is implemented by stages that report summary lines after their
// post phase.
type Footer interface {
	Footer() []string
}

// Tabler is implemented by stages contributing tables to the run summary.
type Tabler interface {
	Tables() []report.Table
}

// Base carries the state every stage shares: key, label, cache, the bound
// environment and the artifacts produced in the current run.
type Base struct {
	key       string
	label     string
	cache     *Cache
	env       *Env
	state     State
	artifacts []string
}

// NewBase returns a Base for a stage identified by key.
func NewBase(key, label string) *Base {
	if label == "" {
		label = key
	}
	return &Base{key: key, label: label, cache: NewCache(), state: StatePending}
}

func (b *Base) base() *Base { return b }

func (b *Base) Key() string { return b.key }
func (b *Base) Label() string { return b.label }
func (b *Base) State() State { return b.state }
func (b *Base) Cache() *Cache { return b.cache }

// Env returns the environment bound for the current run.
func (b *Base) Env() *Env { return b.env }

// Logger returns the run logger tagged with the stage key.
func (b *Base) Logger() *slog.Logger {
	if b.env == nil {
		return slog.Default().With("stage", b.key)
	}
	return b.env.Logger().With("stage", b.key)
}

// AddArtifact records a PDF produced by the stage for the combined report.
func (b *Base) AddArtifact(path string) { b.artifacts = append(b.artifacts, path) }

// Artifacts returns the PDFs recorded in the current run.
func (b *Base) Artifacts() []string { return append([]string(nil), b.artifacts...) }

func (b *Base) PreAnalyze(context.Context) error { return nil }
func (b *Base) PostAnalyze(context.Context) error { return nil }

func (b *Base) VisitSiteMap(context.Context, *tracks.SiteMap) (bool, error) { return true, nil }

func (b *Base) VisitTrackway(context.Context, *tracks.SiteMap, *tracks.Trackway) (bool, error) {
	return true, nil
}

func (b *Base) VisitSeries(context.Context, *tracks.Trackway, *tracks.Series, []*tracks.Track) (bool, error) {
	return true, nil
}

func (b *Base) VisitTrack(context.Context, *tracks.Series, *tracks.Track) error { return nil }

func (b *Base) String() string { return fmt.Sprintf("<%s>", b.key) }

// bind prepares b for a run against env: the cache and artifacts reset.
func (b *Base) bind(env *Env) {
	b.env = env
	b.cache.Reset()
	b.artifacts = nil
	b.state = StatePending
}
