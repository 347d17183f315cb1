package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Field is one CSV column: the row key and its header.
type Field struct {
	Key    string
	Header string
}

// CSVWriter buffers rows and writes them under a fixed, declared column
// order.
type CSVWriter struct {
	Path   string
	fields []Field
	rows   []map[string]string
}

// NewCSVWriter returns a writer for path with the given columns.
func NewCSVWriter(path string, fields ...Field) *CSVWriter {
	return &CSVWriter{Path: path, fields: fields}
}

// Headers returns the column headers in order.
func (w *CSVWriter) Headers() []string {
	out := make([]string, len(w.fields))
	for i, f := range w.fields {
		out[i] = f.Header
	}
	return out
}

// AddRow buffers a row; keys not declared as fields are ignored and missing
// keys are left empty.
func (w *CSVWriter) AddRow(row map[string]any) {
	r := make(map[string]string, len(row))
	for k, v := range row {
		r[k] = formatCell(v)
	}
	w.rows = append(w.rows, r)
}

// Len is the number of buffered rows.
func (w *CSVWriter) Len() int { return len(w.rows) }

// Records returns the header and rows as written.
func (w *CSVWriter) Records() [][]string {
	out := make([][]string, 0, len(w.rows)+1)
	out = append(out, w.Headers())
	for _, r := range w.rows {
		rec := make([]string, len(w.fields))
		for i, f := range w.fields {
			rec[i] = r[f.Key]
		}
		out = append(out, rec)
	}
	return out
}

// Save writes the header and every row to Path.
func (w *CSVWriter) Save() error {
	if w.Path == "" {
		return fmt.Errorf("report: csv path not set")
	}
	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("report: mkdir for %s: %w", w.Path, err)
	}
	f, err := os.Create(w.Path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", w.Path, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(w.Records()); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", w.Path, err)
	}
	return f.Close()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
