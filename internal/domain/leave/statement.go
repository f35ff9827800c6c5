package leave

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"trainerleave/internal/domain/audit"
)

const statementAuditRows = 25

// WriteStatement renders a PDF with the trainer's balances and most recent ledger movements.
func (s *Service) WriteStatement(ctx context.Context, w io.Writer, trainerID string) error {
	snapshot, err := s.GetBalance(ctx, trainerID)
	if err != nil {
		return err
	}
	history, err := s.AuditHistory(ctx, trainerID, Page{Limit: statementAuditRows})
	if err != nil {
		return err
	}
	return renderStatement(w, snapshot, history.Entries, s.now().In(s.Policy.location()).Format("2006-01-02 15:04 MST"))
}

func renderStatement(w io.Writer, snapshot BalanceSnapshot, entries []audit.Entry, generatedAt string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave balance statement")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Trainer: %s (%s)", snapshot.TrainerID, snapshot.Category))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Generated: "+generatedAt)
	pdf.Ln(6)
	if snapshot.LastIncrementDate != nil {
		pdf.Cell(0, 7, "Last accrual: "+snapshot.LastIncrementDate.Format(dateLayout))
		pdf.Ln(6)
	}
	if snapshot.LastRolloverDate != nil {
		pdf.Cell(0, 7, "Last rollover: "+snapshot.LastRolloverDate.Format(dateLayout))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	for _, h := range []string{"Type", "Available", "Used", "Carry forward"} {
		pdf.CellFormat(40, 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 11)
	for _, b := range snapshot.Balances {
		available := b.Available.StringFixed(1)
		if b.Unlimited {
			available = "unlimited"
		}
		pdf.CellFormat(40, 8, string(b.LeaveType), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, available, "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, b.Used.StringFixed(1), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, b.CarryForward.StringFixed(1), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Recent movements")
	pdf.Ln(10)
	if len(entries) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, 7, "No balance movements recorded.")
	} else {
		widths := []float64{32, 20, 32, 18, 20, 68}
		pdf.SetFont("Helvetica", "B", 9)
		for i, h := range []string{"Date", "Type", "Kind", "Delta", "Balance", "Reason"} {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		for _, e := range entries {
			cells := []string{
				e.Timestamp.Format("2006-01-02 15:04"),
				e.LeaveType,
				e.Kind,
				e.Delta.StringFixed(1),
				e.ResultingAvailable.StringFixed(1),
				truncate(e.Reason, 40),
			}
			for i, c := range cells {
				pdf.CellFormat(widths[i], 7, c, "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("render statement: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
