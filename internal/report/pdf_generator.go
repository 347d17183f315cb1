package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	inchToMm               = 25.4
	pdfPageWidthLandscape  = 11 * inchToMm // Letter landscape
	pdfPageHeightLandscape = 8.5 * inchToMm
	pdfMargin              = 0.5 * inchToMm
	pdfContentWidth        = pdfPageWidthLandscape - (2 * pdfMargin)
	maxTableRows           = 40
)

// Table is a titled block of rows for the run summary.
type Table struct {
	Title   string
	Headers []string
	Widths  []float64 // relative column widths, summing to 1
	Rows    [][]string
}

// StageSummary is one stage's outcome as shown in the run summary.
type StageSummary struct {
	Key    string
	Label  string
	State  string
	Error  string
	Footer []string
	Tables []Table
}

// RunSummary is the cover document of a combined report.
type RunSummary struct {
	Name     string
	Started  time.Time
	Duration time.Duration
	SiteMaps int
	Stages   []StageSummary
}

// pdfStyler holds reusable styling and flow state for PDF generation.
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	tr          func(string) string
	styles      map[string]func()
	lineHeight  float64
	currentY    float64
	pageHeight  float64
	contentTopY float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		tr:          pdf.UnicodeTranslatorFromDescriptor(""),
		styles:      make(map[string]func()),
		lineHeight:  6,
		pageHeight:  pdfPageHeightLandscape - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 13)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["error"] = func() {
		s.pdf.SetFont("Arial", "B", 10)
		s.pdf.SetTextColor(200, 0, 0)
	}
}

func (s *pdfStyler) applyStyle(name string) {
	if fn, ok := s.styles[name]; ok {
		fn()
		return
	}
	s.styles["normal"]()
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) checkAddPage(needed float64) {
	if s.currentY+needed > s.pageHeight {
		s.newPage()
	}
}

func (s *pdfStyler) writeParagraph(text, style, align string) {
	s.applyStyle(style)
	s.checkAddPage(s.lineHeight)
	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, s.tr(text), "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(h float64) {
	s.currentY += h
	if s.currentY > s.pageHeight {
		s.newPage()
	}
}

func (s *pdfStyler) writeRow(cells []string, widths []float64, style string, fill bool) {
	s.checkAddPage(s.lineHeight)
	s.applyStyle(style)
	x := pdfMargin
	for i, cell := range cells {
		w := pdfContentWidth / float64(len(cells))
		if i < len(widths) {
			w = widths[i] * pdfContentWidth
		}
		s.pdf.SetXY(x, s.currentY)
		s.pdf.CellFormat(w, s.lineHeight, s.tr(cell), "1", 0, "C", fill, 0, "")
		x += w
	}
	s.currentY += s.lineHeight
}

func (s *pdfStyler) writeTable(t Table) {
	s.writeParagraph(t.Title, "h2", "L")
	if len(t.Rows) == 0 {
		s.writeParagraph(fmt.Sprintf("No rows for %s.", t.Title), "normal", "L")
		return
	}
	s.checkAddPage(2 * s.lineHeight)
	s.writeRow(t.Headers, t.Widths, "tableHeader", true)
	for i, row := range t.Rows {
		if i >= maxTableRows {
			s.writeParagraph(fmt.Sprintf("... %d more rows in the CSV report.", len(t.Rows)-maxTableRows), "normal", "L")
			break
		}
		if s.currentY+s.lineHeight > s.pageHeight {
			s.newPage()
			s.writeRow(t.Headers, t.Widths, "tableHeader", true)
		}
		s.writeRow(row, t.Widths, "tableCell", false)
	}
}

// BuildSummaryPDF writes the run summary cover document to path.
func BuildSummaryPDF(path string, run RunSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: mkdir for %s: %w", path, err)
	}

	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	styler := newPDFStyler(pdf)
	styler.newPage()

	styler.writeParagraph(fmt.Sprintf("Trackway Analysis Report: %s", run.Name), "h1", "C")
	styler.addSpacer(3)
	if !run.Started.IsZero() {
		styler.writeParagraph(fmt.Sprintf("Started %s, ran %s over %d site maps.",
			run.Started.Format(time.RFC3339), run.Duration.Round(time.Millisecond), run.SiteMaps), "normal", "L")
	}
	styler.addSpacer(3)

	styler.writeTable(stageTable(run.Stages))
	for _, st := range run.Stages {
		styler.addSpacer(4)
		styler.writeParagraph(st.Label, "h2", "L")
		if st.Error != "" {
			styler.writeParagraph("Aborted: "+st.Error, "error", "L")
		}
		for _, line := range st.Footer {
			styler.writeParagraph(line, "normal", "L")
		}
		for _, t := range st.Tables {
			styler.addSpacer(2)
			styler.writeTable(t)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("report: write summary %s: %w", path, err)
	}
	return nil
}

func stageTable(stages []StageSummary) Table {
	t := Table{
		Title:   "Stages",
		Headers: []string{"#", "Stage", "Key", "Status"},
		Widths:  []float64{0.08, 0.42, 0.25, 0.25},
	}
	for i, st := range stages {
		t.Rows = append(t.Rows, []string{fmt.Sprint(i + 1), st.Label, st.Key, st.State})
	}
	return t
}
