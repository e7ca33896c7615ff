package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// RecordDocument describes the printable record of a tracked case: a summary
// block of label/value pairs followed by the visible follow-up history.
type RecordDocument struct {
	Title   string
	Summary []RecordField
	History Dataset
}

// RecordField is a single label/value line in the summary block.
type RecordField struct {
	Label string
	Value string
}

// PDFExporter renders a case record into a PDF document.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the PDF bytes for a case record.
func (e *PDFExporter) Render(doc RecordDocument) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf record requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	for _, field := range doc.Summary {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(55, 7, field.Label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 7, field.Value, "", "", false)
	}

	if len(doc.History.Headers) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		colWidth := 190.0 / float64(len(doc.History.Headers))
		for _, header := range doc.History.Headers {
			pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, row := range doc.History.Rows {
			for _, header := range doc.History.Headers {
				pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
