package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptLine is a single labelled amount on a receipt. Amounts arrive pre-formatted.
type ReceiptLine struct {
	Label  string
	Amount string
}

// Receipt holds everything printed on a registration receipt.
type Receipt struct {
	Number        string
	IssuedAt      time.Time
	IssuedTo      string
	SportName     string
	Students      []string
	Lines         []ReceiptLine
	Total         string
	Currency      string
	PaymentMethod string
	PaymentStatus string
	Reference     string
}

// ReceiptRenderer renders receipts as single-page A4 PDFs.
type ReceiptRenderer struct {
	title string
}

// NewReceiptRenderer constructs a renderer whose header shows title.
func NewReceiptRenderer(title string) *ReceiptRenderer {
	if title == "" {
		title = "Registration Receipt"
	}
	return &ReceiptRenderer{title: title}
}

// Render produces the PDF bytes for the receipt.
func (r *ReceiptRenderer) Render(rc Receipt) ([]byte, error) {
	if rc.Number == "" {
		return nil, fmt.Errorf("receipt number required")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, strings.ToUpper(r.title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	meta := [][2]string{
		{"Receipt No.", rc.Number},
		{"Issued", rc.IssuedAt.UTC().Format("02 Jan 2006 15:04 MST")},
		{"Issued To", rc.IssuedTo},
		{"Sport", rc.SportName},
		{"Payment Method", rc.PaymentMethod},
		{"Payment Status", rc.PaymentStatus},
	}
	if rc.Reference != "" {
		meta = append(meta, [2]string{"Reference", rc.Reference})
	}
	for _, kv := range meta {
		if kv[1] == "" {
			continue
		}
		pdf.CellFormat(45, 6, kv[0], "", 0, "", false, 0, "")
		pdf.CellFormat(0, 6, kv[1], "", 1, "", false, 0, "")
	}

	if len(rc.Students) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, "Students", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for i, name := range rc.Students {
			pdf.CellFormat(0, 6, fmt.Sprintf("%d. %s", i+1, name), "", 1, "", false, 0, "")
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(130, 8, "Item", "1", 0, "", false, 0, "")
	pdf.CellFormat(50, 8, "Amount ("+rc.Currency+")", "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, line := range rc.Lines {
		pdf.CellFormat(130, 7, line.Label, "1", 0, "", false, 0, "")
		pdf.CellFormat(50, 7, line.Amount, "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(130, 8, "Total", "1", 0, "", false, 0, "")
	pdf.CellFormat(50, 8, rc.Total, "1", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
