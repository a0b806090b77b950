package infra

// pdf.go — closure document rendering using go-pdf/fpdf.
// Renders the A4 reconciliation report for a closed cash session:
//   - establishment header (name, tax id, address)
//   - document number, session/operator/register identity, shift duration
//   - financial summary (opening, sales by method, withdrawals, supplies)
//   - denomination count table with total
//   - verification block (expected vs counted vs difference vs percent)
//   - notes / justification, operator and receiver signature blocks
//
// Output is returned as bytes so the caller hashes exactly what gets stored.
// The creation date is pinned to the closure timestamp, making the byte
// output a deterministic function of the input.

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"easypos/internal/dto"
)

// PDFRenderer renders closure documents. Satisfies service.ClosureRenderer.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

// Render produces the closure report PDF bytes for one closure snapshot.
func (r *PDFRenderer) Render(data dto.ClosureRenderData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(data.ClosedAt.UTC())
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, data.Establishment.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Tax ID: "+data.Establishment.TaxID, "", 1, "C", false, 0, "")
	if data.Establishment.Address != "" {
		pdf.CellFormat(contentW, 5, data.Establishment.Address, "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, fmt.Sprintf("Cash Session Closure Report Nr. %06d", data.DocumentNumber), "", 1, "C", false, 0, "")
	pdf.Ln(3)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)

	// ── Session identity ─────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW*0.35, 5.5, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentW*0.65, 5.5, value, "", 1, "L", false, 0, "")
	}
	row("Session", data.SessionID)
	row("Register", data.RegisterName)
	row("Operator", data.OperatorName)
	row("Opened at", data.OpenedAt.Format("02/01/2006 15:04"))
	row("Closed at", data.ClosedAt.Format("02/01/2006 15:04"))
	row("Duration", data.ClosedAt.Sub(data.OpenedAt).Round(time.Minute).String())
	pdf.Ln(3)

	// ── Financial summary ────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, "Financial Summary", "B", 1, "L", false, 0, "")
	pdf.Ln(1)

	money := func(label, v string) {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentW*0.6, 5.5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 5.5, "$ "+v, "", 1, "R", false, 0, "")
	}
	money("Opening amount", data.Summary.OpeningAmount.StringFixed(2))
	money("Cash sales", data.Summary.CashSales.StringFixed(2))
	money("Card sales (debit + credit)", data.Summary.CardSales.StringFixed(2))
	money("Pix sales", data.Summary.PixSales.StringFixed(2))
	money("Sales total", data.Summary.SalesTotal.StringFixed(2))
	money("Withdrawals", data.Summary.Withdrawals.StringFixed(2))
	money("Supplies", data.Summary.Supplies.StringFixed(2))
	pdf.Ln(3)

	// ── Denomination counts ──────────────────────────────────────────────────
	if len(data.Counts) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentW, 7, "Denomination Count", "B", 1, "L", false, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW*0.4, 6, "Denomination", "B", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.2, 6, "Qty", "B", 0, "C", false, 0, "")
		pdf.CellFormat(contentW*0.4, 6, "Total", "B", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, line := range data.Counts {
			pdf.CellFormat(contentW*0.4, 5.5, "$ "+line.Denomination.StringFixed(2), "", 0, "L", false, 0, "")
			pdf.CellFormat(contentW*0.2, 5.5, fmt.Sprintf("x%d", line.Quantity), "", 0, "C", false, 0, "")
			pdf.CellFormat(contentW*0.4, 5.5, "$ "+line.Total.StringFixed(2), "", 1, "R", false, 0, "")
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW*0.6, 6, "Counted total", "T", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 6, "$ "+data.CountsTotal.StringFixed(2), "T", 1, "R", false, 0, "")
		pdf.Ln(3)
	}

	// ── Verification block ───────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, "Verification", "B", 1, "L", false, 0, "")
	pdf.Ln(1)
	money("Expected cash", data.Summary.ExpectedCash.StringFixed(2))
	money("Counted amount", data.Summary.CountedAmount.StringFixed(2))
	money("Difference", data.Summary.Difference.StringFixed(2))
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW*0.6, 5.5, "Difference percent", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.4, 5.5, data.Summary.DifferencePercent.StringFixed(2)+" %  ("+data.Classification+")", "", 1, "R", false, 0, "")
	pdf.Ln(3)

	// ── Notes ────────────────────────────────────────────────────────────────
	if data.Notes != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, 6, "Notes", "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, data.Notes, "", "L", false)
		pdf.Ln(3)
	}

	// ── Signatures ───────────────────────────────────────────────────────────
	pdf.Ln(12)
	half := contentW / 2
	pdf.Line(15+half*0.1, pdf.GetY(), 15+half*0.9, pdf.GetY())
	pdf.Line(15+half+half*0.1, pdf.GetY(), 15+half+half*0.9, pdf.GetY())
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(half, 5, "Operator: "+data.OperatorName, "", 0, "C", false, 0, "")
	pdf.CellFormat(half, 5, "Received by", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render closure report: %w", err)
	}
	return buf.Bytes(), nil
}
