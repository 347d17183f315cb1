// Package config loads the YAML run configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/trackway_analyzer_go/internal/validation"
)

// Stage names accepted in Config.Stages, in their default run order.
const (
	StageStride      = "stride"
	StageStridePlots = "stride_plots"
	StagePace        = "pace"
	StagePacePlots   = "pace_plots"
	StageCurvature   = "curvature"
)

// KnownStages lists every stage name in default order.
var KnownStages = []string{StageStride, StageStridePlots, StagePace, StagePacePlots, StageCurvature}

// plotRequires maps each plot stage to the length stage it reads.
var plotRequires = map[string]string{
	StageStridePlots: StageStride,
	StagePacePlots:   StagePace,
}

// ErrNoSource is returned by Validate when neither or both of db_path and
// csv_path are set.
var ErrNoSource = errors.New("config: exactly one of db_path or csv_path is required")

// Config holds a full analyzer run configuration.
type Config struct {
	Name          string   `yaml:"name"`
	DBPath        string   `yaml:"db_path"`
	CSVPath       string   `yaml:"csv_path"`
	OutputDir     string   `yaml:"output_dir"`
	TempDir       string   `yaml:"temp_dir"`
	SiteMaps      []string `yaml:"sitemaps"`
	IncludeHidden bool     `yaml:"include_hidden"`
	Stages        []string `yaml:"stages"`

	HistogramBins     int     `yaml:"histogram_bins"`
	InstrumentFloor   float64 `yaml:"instrument_floor"`
	SignificanceSigma float64 `yaml:"significance_sigma"`
	Coverage          float64 `yaml:"coverage"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the defaults every file is merged over. It has no
// source set.
func DefaultConfig() *Config {
	return &Config{
		Name:              "validation",
		OutputDir:         "out",
		Stages:            append([]string(nil), KnownStages...),
		HistogramBins:     validation.DefaultBins,
		InstrumentFloor:   validation.DefaultInstrumentFloor,
		SignificanceSigma: validation.DefaultSignificanceSigma,
		Coverage:          validation.DefaultCoverage,
		LogLevel:          "info",
	}
}

// LoadConfig reads a YAML file over DefaultConfig. The result is not
// validated, so command line overrides can still be applied.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if (c.DBPath == "") == (c.CSVPath == "") {
		return ErrNoSource
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.HistogramBins <= 0 {
		return fmt.Errorf("histogram_bins must be > 0")
	}
	if c.InstrumentFloor < 0 {
		return fmt.Errorf("instrument_floor must be >= 0")
	}
	if c.SignificanceSigma <= 0 {
		return fmt.Errorf("significance_sigma must be > 0")
	}
	if c.Coverage <= 0 || c.Coverage >= 100 {
		return fmt.Errorf("coverage must be in (0, 100)")
	}
	if len(c.Stages) == 0 {
		return fmt.Errorf("stages must not be empty")
	}

	seen := make(map[string]bool, len(c.Stages))
	for i, s := range c.Stages {
		if !isKnown(s) {
			return fmt.Errorf("stages[%d]: unknown stage %q (use %s)", i, s, strings.Join(KnownStages, ", "))
		}
		if seen[s] {
			return fmt.Errorf("stages[%d]: duplicate stage %q", i, s)
		}
		if req, ok := plotRequires[s]; ok && !seen[req] {
			return fmt.Errorf("stages[%d]: %s must follow %s", i, s, req)
		}
		seen[s] = true
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported log_level %q", c.LogLevel)
	}
	return nil
}

// Params returns the length stage settings.
func (c *Config) Params() validation.Params {
	return validation.Params{
		Bins:              c.HistogramBins,
		InstrumentFloor:   c.InstrumentFloor,
		SignificanceSigma: c.SignificanceSigma,
		Coverage:          c.Coverage,
	}
}

// ParseList splits a comma separated flag value, dropping blanks.
func ParseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isKnown(name string) bool {
	for _, k := range KnownStages {
		if k == name {
			return true
		}
	}
	return false
}
