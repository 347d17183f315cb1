package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/user/trackway_analyzer_go/internal/report"
	"github.com/user/trackway_analyzer_go/internal/tracks"
)

var (
	// ErrNoStages is returned by Run when no stage is registered.
	ErrNoStages = errors.New("analysis: no stages registered")
	// ErrAllStagesFailed is returned by Run when every stage aborted.
	ErrAllStagesFailed = errors.New("analysis: every stage failed")
)

const separator = "================================================================================"

// Analyzer runs an ordered list of stages against a set of site maps.
type Analyzer struct {
	name          string
	source        tracks.Source
	svc           Services
	stages        []Stage
	siteMaps      []string
	includeHidden bool
	now           func() time.Time
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithSiteMaps restricts the run to site maps whose filename or id matches
// one of filters. No filters selects every site map.
func WithSiteMaps(filters ...string) Option {
	return func(a *Analyzer) { a.siteMaps = append(a.siteMaps, filters...) }
}

// WithHidden includes hidden trackways.
func WithHidden(include bool) Option { return func(a *Analyzer) { a.includeHidden = include } }

// WithStages registers stages in order.
func WithStages(stages ...Stage) Option {
	return func(a *Analyzer) { a.stages = append(a.stages, stages...) }
}

// New returns an Analyzer named name reading from src.
func New(name string, src tracks.Source, svc Services, opts ...Option) *Analyzer {
	a := &Analyzer{name: name, source: src, svc: svc, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Name is the analyzer name used for the combined report.
func (a *Analyzer) Name() string { return a.name }

// AddStage appends st to the run order.
func (a *Analyzer) AddStage(st Stage) { a.stages = append(a.stages, st) }

// Stages returns the registered stages in run order.
func (a *Analyzer) Stages() []Stage { return append([]Stage(nil), a.stages...) }

// Run executes every stage's full lifecycle in registration order. A stage
// failure is logged and isolated; only a failure of every stage, or of
// loading the site maps, fails the run.
func (a *Analyzer) Run(ctx context.Context) (*RunReport, error) {
	if len(a.stages) == 0 {
		return nil, ErrNoStages
	}
	log := a.svc.Logger()
	started := a.now()

	sms, err := a.selectSiteMaps(ctx)
	if err != nil {
		return nil, err
	}
	env := &Env{
		Services:      a.svc,
		Name:          a.name,
		Source:        a.source,
		IncludeHidden: a.includeHidden,
		SiteMaps:      sms,
	}
	rep := &RunReport{Name: a.name, Started: started, SiteMaps: len(sms)}

	for i, st := range a.stages {
		log.Info(separator)
		log.Info(fmt.Sprintf("STAGE %d: %s", i+1, strings.ToUpper(st.Label())))
		res := a.runStage(ctx, env, st)
		if res.Err != nil {
			log.Error("Stage failed", "stage", res.Key, "error", res.Err)
		}
		for _, line := range res.Footer {
			log.Info(line)
		}
		rep.Stages = append(rep.Stages, res)
	}
	rep.Duration = a.now().Sub(started)

	rep.ReportPath, rep.ReportErr = a.buildReport(rep)
	if rep.ReportErr != nil {
		log.Error("Failed to build combined report", "error", rep.ReportErr)
	}

	if rep.Failures() == len(rep.Stages) {
		return rep, ErrAllStagesFailed
	}
	return rep, nil
}

func (a *Analyzer) runStage(ctx context.Context, env *Env, st Stage) StageResult {
	b := st.base()
	b.bind(env)
	err := lifecycle(ctx, env, st)

	res := StageResult{Key: st.Key(), Label: st.Label(), State: b.state, Err: err}
	if f, ok := st.(Footer); ok && err == nil {
		res.Footer = f.Footer()
	}
	if t, ok := st.(Tabler); ok && err == nil {
		res.Tables = t.Tables()
	}
	res.Artifacts = b.Artifacts()
	return res
}

// lifecycle runs pre, analyze and post in order. The first error, or a
// recovered panic, aborts the remaining phases.
func lifecycle(ctx context.Context, env *Env, st Stage) (err error) {
	b := st.base()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s phase: %v", b.state, r)
			env.Logger().Debug("Recovered stage panic", "stage", st.Key(), "stack", string(debug.Stack()))
		}
		if err != nil {
			b.state = StateAborted
			return
		}
		b.state = StateComplete
	}()

	b.state = StatePre
	if err := st.PreAnalyze(ctx); err != nil {
		return fmt.Errorf("pre-analyze: %w", err)
	}
	b.state = StateAnalyzing
	if err := walk(ctx, env, st); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	b.state = StatePost
	if err := st.PostAnalyze(ctx); err != nil {
		return fmt.Errorf("post-analyze: %w", err)
	}
	return nil
}

func (a *Analyzer) selectSiteMaps(ctx context.Context) ([]*tracks.SiteMap, error) {
	all, err := a.source.SiteMaps(ctx)
	if err != nil {
		return nil, fmt.Errorf("load site maps: %w", err)
	}
	if len(a.siteMaps) == 0 {
		return all, nil
	}

	matched := make(map[string]bool, len(a.siteMaps))
	var out []*tracks.SiteMap
	for _, sm := range all {
		for _, f := range a.siteMaps {
			if f == sm.Filename || f == strconv.FormatInt(sm.ID, 10) {
				out = append(out, sm)
				matched[f] = true
				break
			}
		}
	}
	for _, f := range a.siteMaps {
		if !matched[f] {
			a.svc.Logger().Warn("No site map matches filter", "filter", f)
		}
	}
	return out, nil
}

// buildReport merges a summary cover and every stage's PDF artifacts into
// <name>-report.pdf.
func (a *Analyzer) buildReport(rep *RunReport) (string, error) {
	cover, err := a.svc.TempPath(".pdf")
	if err != nil {
		return "", err
	}
	if err := report.BuildSummaryPDF(cover, rep.summary()); err != nil {
		return "", err
	}
	docs := []string{cover}
	for _, st := range rep.Stages {
		if st.Failed() {
			continue
		}
		docs = append(docs, st.Artifacts...)
	}

	out, err := a.svc.Path(a.name + "-report.pdf")
	if err != nil {
		return "", err
	}
	if err := a.svc.MergePDFs(out, docs); err != nil {
		return "", err
	}
	return out, nil
}
