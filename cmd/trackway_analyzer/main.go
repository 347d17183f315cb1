// Command trackway_analyzer validates digitized trackway data against field
// measurements and writes CSV, histogram and trackway map reports.
//
// Usage:
//
//	trackway_analyzer -config analyzer.yaml
//	trackway_analyzer -csv tracks.csv -out out
//	trackway_analyzer -db tracks.db -sitemap BEB_500 -stages stride,stride_plots
//	trackway_analyzer -csv tracks.csv -import-db tracks.db
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/trackway_analyzer_go/internal/analysis"
	"github.com/user/trackway_analyzer_go/internal/config"
	"github.com/user/trackway_analyzer_go/internal/logging"
)

type flags struct {
	config   string
	db       string
	csv      string
	out      string
	sitemap  string
	hidden   bool
	stages   string
	logLevel string
	importDB string
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "", "path to YAML config file")
	flag.StringVar(&f.db, "db", "", "path to SQLite track database")
	flag.StringVar(&f.csv, "csv", "", "path to track CSV file")
	flag.StringVar(&f.out, "out", "", "output directory")
	flag.StringVar(&f.sitemap, "sitemap", "", "comma separated site map filenames or ids")
	flag.BoolVar(&f.hidden, "hidden", false, "include hidden trackways")
	flag.StringVar(&f.stages, "stages", "", "comma separated stages to run")
	flag.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.StringVar(&f.importDB, "import-db", "", "copy the parsed CSV tracks into this SQLite database")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	cfg, err := resolveConfig(f, set)
	if err != nil {
		fmt.Fprintln(os.Stderr, "trackway_analyzer:", err)
		fmt.Fprintln(os.Stderr, "usage: trackway_analyzer -config <file> | -csv <path> | -db <path> [-out <dir>] [-stages <list>]")
		os.Exit(2)
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, f.importDB); err != nil {
		logger.Error("trackway_analyzer: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, importDB string) error {
	app := NewApp(cfg, logger)
	app.ImportDB = importDB
	rep, err := app.Run(ctx)
	if errors.Is(err, analysis.ErrAllStagesFailed) {
		return fmt.Errorf("%d of %d stages failed: %w", rep.Failures(), len(rep.Stages), err)
	}
	if err != nil {
		return err
	}
	if n := rep.Failures(); n > 0 {
		logger.Warn(fmt.Sprintf("%d of %d stages failed", n, len(rep.Stages)))
	}
	return nil
}

// resolveConfig loads the config file, if any, applies the flags that were
// set and validates the result.
func resolveConfig(f flags, set map[string]bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = config.LoadConfig(f.config); err != nil {
			return nil, err
		}
	}

	if set["db"] {
		cfg.DBPath, cfg.CSVPath = f.db, ""
	}
	if set["csv"] {
		cfg.CSVPath = f.csv
		if !set["db"] {
			cfg.DBPath = ""
		}
	}
	if set["out"] {
		cfg.OutputDir = f.out
	}
	if set["sitemap"] {
		cfg.SiteMaps = config.ParseList(f.sitemap)
	}
	if set["hidden"] {
		cfg.IncludeHidden = f.hidden
	}
	if set["stages"] {
		cfg.Stages = config.ParseList(f.stages)
	}
	if set["log-level"] {
		cfg.LogLevel = f.logLevel
	}
	if f.importDB != "" && cfg.CSVPath == "" {
		return nil, fmt.Errorf("-import-db needs a CSV source")
	}
	return cfg, cfg.Validate()
}
