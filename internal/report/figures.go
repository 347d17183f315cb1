package report

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Default figure size for saved plots.
const (
	FigureWidth  = 8 * vg.Inch
	FigureHeight = 5 * vg.Inch
)

// Figures is a registry of reusable plotting surfaces keyed by name.
type Figures struct {
	figs map[string]*plot.Plot
}

// NewFigures returns an empty registry.
func NewFigures() *Figures {
	return &Figures{figs: make(map[string]*plot.Plot)}
}

// Create returns a fresh plot registered under key, replacing any figure
// already held under that key.
func (f *Figures) Create(key string) *plot.Plot {
	p := plot.New()
	f.figs[key] = p
	return p
}

// Get returns the figure registered under key.
func (f *Figures) Get(key string) (*plot.Plot, bool) {
	p, ok := f.figs[key]
	return p, ok
}

// Save writes the figure under key to path. The format follows the file
// extension (pdf, png, svg, eps).
func (f *Figures) Save(key, path string, w, h vg.Length) error {
	p, ok := f.figs[key]
	if !ok {
		return fmt.Errorf("report: no figure %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: mkdir for %s: %w", path, err)
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("report: save figure %q to %s: %w", key, path, err)
	}
	return nil
}

// Release drops the figure registered under key.
func (f *Figures) Release(key string) {
	delete(f.figs, key)
}

// Len is the number of figures currently held.
func (f *Figures) Len() int { return len(f.figs) }
