package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNoInput is returned when a merge is requested with no input documents.
var ErrNoInput = errors.New("report: no documents to merge")

var disableConfigDir sync.Once

// MergePDFs concatenates the pages of in, in order, into out.
func MergePDFs(out string, in []string) error {
	if len(in) == 0 {
		return ErrNoInput
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("report: mkdir for %s: %w", out, err)
	}
	if len(in) == 1 {
		return copyFile(in[0], out)
	}

	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	if err := api.MergeCreateFile(in, out, false, conf); err != nil {
		return fmt.Errorf("pdfcpu merge into %s: %w", out, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("report: open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("report: copy %s: %w", src, err)
	}
	return out.Close()
}
