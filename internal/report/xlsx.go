package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"wagebook/internal/core"
)

const (
	RecordsSheet = "Records"
	TotalsSheet  = "Totals"

	// ContentTypeXLSX is the MIME type of WriteXLSX output.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteXLSX writes a workbook with one row per record on the Records sheet
// and per-worker totals plus the grand total on the Totals sheet. Amount
// cells are numeric.
func WriteXLSX(w io.Writer, records []core.WageRecord, s core.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes Records
	if err := f.SetSheetName(f.GetSheetName(0), RecordsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(TotalsSheet); err != nil {
		return fmt.Errorf("create totals sheet: %w", err)
	}

	if err := writeRow(f, RecordsSheet, 1, toAny(RecordsHeader)); err != nil {
		return err
	}
	for i, r := range records {
		row := []any{r.WorkDate.String(), r.WorkerName, r.Amount.InexactFloat64(), r.Note}
		if err := writeRow(f, RecordsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := writeRow(f, TotalsSheet, 1, toAny(TotalsHeader)); err != nil {
		return err
	}
	for i, wt := range s.ByWorker {
		if err := writeRow(f, TotalsSheet, i+2, []any{wt.WorkerName, wt.Total.InexactFloat64()}); err != nil {
			return err
		}
	}
	last := []any{GrandTotalLabel, s.GrandTotal.InexactFloat64()}
	if err := writeRow(f, TotalsSheet, len(s.ByWorker)+2, last); err != nil {
		return err
	}

	_ = f.SetColWidth(RecordsSheet, "A", "B", 16)
	_ = f.SetColWidth(RecordsSheet, "D", "D", 40)
	_ = f.SetColWidth(TotalsSheet, "A", "A", 20)
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
