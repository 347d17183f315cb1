package analysis

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/user/trackway_analyzer_go/internal/report"
	"github.com/user/trackway_analyzer_go/internal/tracks"
)

// Services are the shared resources an analyzer lends its stages, one stage
// at a time.
type Services interface {
	Logger() *slog.Logger
	Figures() *report.Figures
	// Path returns a file path in the output directory, creating parents.
	Path(name string) (string, error)
	// TempPath returns a fresh, unique path in temp space with extension ext.
	TempPath(ext string) (string, error)
	MergePDFs(out string, in []string) error
}

// Env is what a stage sees of the run it takes part in.
type Env struct {
	Services
	Name          string
	Source        tracks.Source
	IncludeHidden bool
	SiteMaps      []*tracks.SiteMap
}

// Workspace is the file-backed Services implementation.
type Workspace struct {
	outputDir string
	tempDir   string
	logger    *slog.Logger
	figures   *report.Figures
}

// NewWorkspace returns Services writing outputs under outputDir and
// intermediates under tempDir (outputDir/.tmp when empty).
func NewWorkspace(outputDir, tempDir string, logger *slog.Logger) *Workspace {
	if tempDir == "" {
		tempDir = filepath.Join(outputDir, ".tmp")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		outputDir: outputDir,
		tempDir:   tempDir,
		logger:    logger,
		figures:   report.NewFigures(),
	}
}

func (w *Workspace) Logger() *slog.Logger { return w.logger }
func (w *Workspace) Figures() *report.Figures { return w.figures }
func (w *Workspace) OutputDir() string { return w.outputDir }
func (w *Workspace) TempDir() string { return w.tempDir }

func (w *Workspace) Path(name string) (string, error) {
	p := filepath.Join(w.outputDir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("workspace: mkdir for %s: %w", p, err)
	}
	return p, nil
}

func (w *Workspace) TempPath(ext string) (string, error) {
	if err := os.MkdirAll(w.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("workspace: mkdir %s: %w", w.tempDir, err)
	}
	return filepath.Join(w.tempDir, uuid.NewString()+ext), nil
}

func (w *Workspace) MergePDFs(out string, in []string) error {
	return report.MergePDFs(out, in)
}

// Cleanup removes temp space.
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.tempDir)
}
