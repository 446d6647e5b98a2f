package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows Rows) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rows.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows.Cells); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}
