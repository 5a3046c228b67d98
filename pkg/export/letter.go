package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Letter describes a single-page decision letter.
type Letter struct {
	Letterhead string
	Date       time.Time
	Recipient  string
	Subject    string
	Paragraphs []string
	SignedBy   string
}

// LetterRenderer produces PDF decision letters.
type LetterRenderer struct{}

// NewLetterRenderer constructs a letter renderer.
func NewLetterRenderer() *LetterRenderer {
	return &LetterRenderer{}
}

// Render builds the PDF for a letter.
func (r *LetterRenderer) Render(letter Letter) ([]byte, error) {
	if len(letter.Paragraphs) == 0 {
		return nil, fmt.Errorf("letter requires at least one paragraph")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	if letter.Letterhead != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, letter.Letterhead, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "", 11)
	if !letter.Date.IsZero() {
		pdf.CellFormat(0, 6, letter.Date.Format("January 2, 2006"), "", 1, "R", false, 0, "")
		pdf.Ln(2)
	}
	if letter.Recipient != "" {
		pdf.CellFormat(0, 6, letter.Recipient, "", 1, "L", false, 0, "")
		pdf.Ln(4)
	}

	if letter.Subject != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, letter.Subject, "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	pdf.SetFont("Arial", "", 11)
	for _, paragraph := range letter.Paragraphs {
		pdf.MultiCell(0, 6, paragraph, "", "L", false)
		pdf.Ln(3)
	}

	if letter.SignedBy != "" {
		pdf.Ln(6)
		pdf.CellFormat(0, 6, "Sincerely,", "", 1, "L", false, 0, "")
		pdf.Ln(8)
		pdf.CellFormat(0, 6, letter.SignedBy, "", 1, "L", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render letter: %w", err)
	}
	return buf.Bytes(), nil
}
