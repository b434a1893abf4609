/*
export.go - CSV rendering of calculator output

PURPOSE:
  The report exporter consumes Ledger Calculator output and writes rows; it
  performs no business logic of its own. CSV is the export format: the
  sheet name becomes a title row so a spreadsheet import keeps its label.
*/
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Exporter writes report rows as CSV.
type Exporter struct{}

// Export writes a titled CSV document: sheet name, header, then rows.
func (Exporter) Export(w io.Writer, sheetName string, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if sheetName != "" {
		if err := cw.Write([]string{sheetName}); err != nil {
			return err
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportBreakdown renders a project expense breakdown.
func (e Exporter) ExportBreakdown(w io.Writer, b *ProjectBreakdown) error {
	rows := make([][]string, 0, len(b.PerEmployee)+1)
	for _, name := range b.EmployeeNames() {
		rows = append(rows, []string{name, b.PerEmployee[name].StringFixed(2)})
	}
	rows = append(rows, []string{"TOTAL", b.Total.StringFixed(2)})

	sheet := fmt.Sprintf("Expenses - %s", b.ProjectName)
	return e.Export(w, sheet, []string{"employee", "amount"}, rows)
}

// ExportSummary renders the organization summary.
func (e Exporter) ExportSummary(w io.Writer, s *OrganizationSummary) error {
	rows := make([][]string, 0, len(s.Employees)+1)
	for _, row := range s.Employees {
		rows = append(rows, []string{
			row.EmployeeName,
			row.Inflow.StringFixed(2),
			row.Outflow.StringFixed(2),
			row.Balance.StringFixed(2),
		})
	}
	rows = append(rows, []string{
		"TOTAL",
		s.Inflow.StringFixed(2),
		s.Outflow.StringFixed(2),
		s.Balance.StringFixed(2),
	})

	return e.Export(w, "Organization Summary", []string{"employee", "inflow", "outflow", "balance"}, rows)
}
