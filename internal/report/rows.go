// Package report renders filtered views and summaries as downloadable
// CSV files and XLSX workbooks.
package report

import (
	"wagebook/internal/core"
)

// RecordsHeader is the fixed column order of the records export.
var RecordsHeader = []string{"date", "worker_name", "salary", "notes"}

// TotalsHeader is the column order of the per-worker totals export.
var TotalsHeader = []string{"worker_name", "total"}

// GrandTotalLabel names the closing row of a totals table.
const GrandTotalLabel = "Grand total"

// Download names of the three exports.
const (
	RecordsCSVName = "filtered_salaries.csv"
	TotalsCSVName  = "salary_summary.csv"
	WorkbookName   = "salaries.xlsx"
)

// Rows is a header plus string cells, ready for any tabular encoder.
type Rows struct {
	Header []string
	Cells  [][]string
}

// RecordRows lists records in the order given.
func RecordRows(records []core.WageRecord) Rows {
	out := Rows{Header: RecordsHeader, Cells: make([][]string, 0, len(records))}
	for _, r := range records {
		out.Cells = append(out.Cells, []string{
			r.WorkDate.String(),
			r.WorkerName,
			core.FormatAmount(r.Amount),
			r.Note,
		})
	}
	return out
}

// TotalRows lists per-worker totals. With grand set, a final row carries
// the grand total.
func TotalRows(s core.Summary, grand bool) Rows {
	out := Rows{Header: TotalsHeader, Cells: make([][]string, 0, len(s.ByWorker)+1)}
	for _, wt := range s.ByWorker {
		out.Cells = append(out.Cells, []string{wt.WorkerName, core.FormatAmount(wt.Total)})
	}
	if grand {
		out.Cells = append(out.Cells, []string{GrandTotalLabel, core.FormatAmount(s.GrandTotal)})
	}
	return out
}
