package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"wagebook/internal/core"
)

var (
	recordHeader = []string{"id", "date", "worker_name", "category", "salary", "notes"}
	workerHeader = []string{"id", "worker_name", "category", "contact"}
)

// columns maps lower-cased header names to their position.
type columns map[string]int

func headerColumns(row []any, want []string) (columns, error) {
	cols := columns{}
	for i, cell := range toStrings(row) {
		cols[strings.ToLower(cell)] = i
	}
	var missing []string
	for _, name := range want {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected header: missing %s", strings.Join(missing, ","))
	}
	return cols, nil
}

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch v := v.(type) {
		case nil:
		case float64:
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

// parseID accepts "7" as well as the "7.0" a numeric cell may render as.
func parseID(s string) (int64, error) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return d.IntPart(), nil
}

func parseRecord(cols columns, row []string) (core.WageRecord, error) {
	id, err := parseID(cols.get(row, "id"))
	if err != nil {
		return core.WageRecord{}, err
	}
	date, err := core.ParseDate(cols.get(row, "date"))
	if err != nil {
		return core.WageRecord{}, err
	}
	amount, err := core.ParseAmount(cols.get(row, "salary"))
	if err != nil {
		return core.WageRecord{}, err
	}
	return core.WageRecord{
		ID:         id,
		WorkerName: cols.get(row, "worker_name"),
		Category:   cols.get(row, "category"),
		Amount:     amount,
		WorkDate:   date,
		Note:       cols.get(row, "notes"),
	}, nil
}

func parseWorker(cols columns, row []string) (core.Worker, error) {
	id, err := parseID(cols.get(row, "id"))
	if err != nil {
		return core.Worker{}, err
	}
	return core.Worker{
		ID:       id,
		Name:     cols.get(row, "worker_name"),
		Category: cols.get(row, "category"),
		Contact:  cols.get(row, "contact"),
	}, nil
}

// recordRow lays r out in header order. Cells are written RAW so dates and
// amounts keep their exact text.
func recordRow(cols columns, r core.WageRecord) []any {
	return layout(cols, map[string]string{
		"id":          strconv.FormatInt(r.ID, 10),
		"date":        r.WorkDate.String(),
		"worker_name": r.WorkerName,
		"category":    r.Category,
		"salary":      core.FormatAmount(r.Amount),
		"notes":       r.Note,
	})
}

func workerRow(cols columns, w core.Worker) []any {
	return layout(cols, map[string]string{
		"id":          strconv.FormatInt(w.ID, 10),
		"worker_name": w.Name,
		"category":    w.Category,
		"contact":     w.Contact,
	})
}

// layout places values by column. Cells of other columns stay nil, which
// the API skips, so hand-added columns keep their contents.
func layout(cols columns, values map[string]string) []any {
	width := 0
	for name := range values {
		if i, ok := cols[name]; ok {
			width = max(width, i+1)
		}
	}
	row := make([]any, width)
	for name, v := range values {
		if i, ok := cols[name]; ok {
			row[i] = v
		}
	}
	return row
}

func defaultColumns(header []string) columns {
	cols := columns{}
	for i, name := range header {
		cols[name] = i
	}
	return cols
}

func headerRow(header []string) []any {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	return row
}
