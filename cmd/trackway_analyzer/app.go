package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/trackway_analyzer_go/internal/analysis"
	"github.com/user/trackway_analyzer_go/internal/config"
	"github.com/user/trackway_analyzer_go/internal/curvature"
	"github.com/user/trackway_analyzer_go/internal/parser"
	"github.com/user/trackway_analyzer_go/internal/store"
	"github.com/user/trackway_analyzer_go/internal/tracks"
	"github.com/user/trackway_analyzer_go/internal/validation"
)

// App drives one analyzer run from a validated configuration.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	// ImportDB, when set with a CSV source, receives a SQLite copy of the
	// parsed tracks.
	ImportDB string
}

// NewApp returns an App for cfg.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

func (a *App) status(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

// Run opens the configured source, runs every configured stage and returns
// the run report.
func (a *App) Run(ctx context.Context) (*analysis.RunReport, error) {
	src, closeSrc, err := a.openSource(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	stages, err := a.buildStages()
	if err != nil {
		return nil, err
	}

	ws := analysis.NewWorkspace(a.cfg.OutputDir, a.cfg.TempDir, a.logger)
	defer func() {
		if err := ws.Cleanup(); err != nil {
			a.logger.Warn("Failed to remove temp files", "dir", ws.TempDir(), "error", err)
		}
	}()

	an := analysis.New(a.cfg.Name, src, ws,
		analysis.WithSiteMaps(a.cfg.SiteMaps...),
		analysis.WithHidden(a.cfg.IncludeHidden),
		analysis.WithStages(stages...),
	)
	a.status(fmt.Sprintf("Analyzing %d stages", len(stages)), "output", a.cfg.OutputDir)
	rep, err := an.Run(ctx)
	if rep != nil && rep.ReportPath != "" {
		a.status("Combined report generated", "path", rep.ReportPath)
	}
	return rep, err
}

func (a *App) openSource(ctx context.Context) (tracks.Source, func() error, error) {
	noop := func() error { return nil }

	if a.cfg.DBPath != "" {
		a.status("Opening track database", "path", a.cfg.DBPath)
		st, err := store.Open(a.cfg.DBPath)
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	}

	a.status("Parsing: " + a.cfg.CSVPath)
	parsed, err := parser.ParseTracks(a.cfg.CSVPath)
	if err != nil {
		return nil, noop, fmt.Errorf("parse %s: %w", a.cfg.CSVPath, err)
	}
	a.status(fmt.Sprintf("Parsed %d tracks in %d site maps", parsed.Tracks, len(parsed.SiteMaps)))
	for _, e := range parsed.ParseErrors {
		a.logger.Warn(e)
	}
	if parsed.Tracks == 0 {
		return nil, noop, fmt.Errorf("no tracks parsed from %s", a.cfg.CSVPath)
	}

	if a.ImportDB != "" {
		st, err := store.Open(a.ImportDB)
		if err != nil {
			return nil, noop, err
		}
		n, err := st.Import(ctx, parsed.Source)
		st.Close()
		if err != nil {
			return nil, noop, fmt.Errorf("import into %s: %w", a.ImportDB, err)
		}
		a.status(fmt.Sprintf("Imported %d tracks", n), "path", a.ImportDB)
	}
	return parsed.Source, noop, nil
}

// buildStages instantiates the configured stages in order. Plot stages are
// bound to the length stage built before them.
func (a *App) buildStages() ([]analysis.Stage, error) {
	params := a.cfg.Params()
	lengths := map[string]*validation.LengthStage{}
	var out []analysis.Stage

	for _, name := range a.cfg.Stages {
		switch name {
		case config.StageStride:
			st := validation.NewStrideLengthStage(params)
			lengths[name] = st
			out = append(out, st)
		case config.StagePace:
			st := validation.NewPaceLengthStage(params)
			lengths[name] = st
			out = append(out, st)
		case config.StageStridePlots, config.StagePacePlots:
			src := lengths[config.StageStride]
			if name == config.StagePacePlots {
				src = lengths[config.StagePace]
			}
			if src == nil {
				return nil, fmt.Errorf("stage %s needs its length stage first", name)
			}
			out = append(out, validation.NewTrackwayPlotStage(src))
		case config.StageCurvature:
			out = append(out, curvature.NewSeriesCurvatureStage(params.Bins))
		default:
			return nil, fmt.Errorf("unknown stage %q", name)
		}
	}
	return out, nil
}
