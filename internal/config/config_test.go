package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func valid() *Config {
	cfg := DefaultConfig()
	cfg.CSVPath = "tracks.csv"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrNoSource) {
		t.Fatalf("defaults have no source, got %v", err)
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("default config with a source should be valid: %v", err)
	}
	p := cfg.Params()
	if p.Bins != 31 || p.InstrumentFloor != 0.03 || p.SignificanceSigma != 2 || p.Coverage != 95.45 {
		t.Errorf("Params = %+v", p)
	}
}

func TestLoadConfig(t *testing.T) {
	yaml := `
name: beb
db_path: /tmp/tracks.db
sitemaps: [BEB_500, "3"]
include_hidden: true
stages: [pace, pace_plots]
instrument_floor: 0.05
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Name != "beb" || !cfg.IncludeHidden || len(cfg.SiteMaps) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.InstrumentFloor != 0.05 || cfg.HistogramBins != 31 {
		t.Errorf("floor=%v bins=%d", cfg.InstrumentFloor, cfg.HistogramBins)
	}
	if strings.Join(cfg.Stages, ",") != "pace,pace_plots" {
		t.Errorf("stages = %v", cfg.Stages)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("stages: {not: a list"), 0o644)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"both sources", func(c *Config) { c.DBPath = "x.db" }, "exactly one"},
		{"zero bins", func(c *Config) { c.HistogramBins = 0 }, "histogram_bins"},
		{"negative floor", func(c *Config) { c.InstrumentFloor = -0.1 }, "instrument_floor"},
		{"coverage 100", func(c *Config) { c.Coverage = 100 }, "coverage"},
		{"coverage 0", func(c *Config) { c.Coverage = 0 }, "coverage"},
		{"unknown stage", func(c *Config) { c.Stages = []string{"width"} }, "unknown stage"},
		{"duplicate stage", func(c *Config) { c.Stages = []string{"stride", "stride"} }, "duplicate"},
		{"plot before length", func(c *Config) { c.Stages = []string{"stride_plots", "stride"} }, "must follow"},
		{"no stages", func(c *Config) { c.Stages = nil }, "stages"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := valid()
			c.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, c.want)
			}
		})
	}
	cfg := valid()
	cfg.InstrumentFloor = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero floor is allowed: %v", err)
	}
}

func TestParseList(t *testing.T) {
	if got := ParseList(" a, ,b,"); strings.Join(got, "|") != "a|b" {
		t.Fatalf("ParseList = %v", got)
	}
	if ParseList("") != nil {
		t.Fatalf("empty list should be nil")
	}
}
