package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestTagHandler_Prefixes(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelDebug)

	log.Info("Processed 3 tracks")
	log.Warn("Invalid track separation of 0.0", "track", "BEB-500-A-S1-LP1", "uid", "t1")
	log.Error("Failed to save CSV file", "path", "/tmp/a b.csv")
	log.Debug("figure released")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"Processed 3 tracks",
		"[WARNING]: Invalid track separation of 0.0 track=BEB-500-A-S1-LP1 uid=t1",
		`[ERROR]: Failed to save CSV file path="/tmp/a b.csv"`,
		"[DEBUG]: figure released",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestTagHandler_LevelAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn).With("stage", "strideLength")

	log.Info("hidden")
	log.WithGroup("pair").Warn("degenerate", "next", "t2")

	got := strings.TrimSpace(buf.String())
	if got != "[WARNING]: degenerate stage=strideLength pair.next=t2" {
		t.Fatalf("got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}
