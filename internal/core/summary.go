package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// WorkerTotal is an amount aggregated by worker name.
type WorkerTotal struct {
	WorkerName string          `json:"worker_name"`
	Total      decimal.Decimal `json:"total"`
}

// PeriodTotal is one bucket of a daily ("2024-01-05") or monthly
// ("2024-01") rollup.
type PeriodTotal struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// Metrics describes a record set. Min and Max are not Valid for empty input.
type Metrics struct {
	Count           int                 `json:"count"`
	DistinctWorkers int                 `json:"distinct_workers"`
	Min             decimal.NullDecimal `json:"min_amount"`
	Max             decimal.NullDecimal `json:"max_amount"`
}

// Summary is everything derived from a filtered view.
type Summary struct {
	GrandTotal decimal.Decimal `json:"grand_total"`
	ByWorker   []WorkerTotal   `json:"by_worker"`
	Daily      []PeriodTotal   `json:"daily"`
	Monthly    []PeriodTotal   `json:"monthly"`
	Metrics    Metrics         `json:"metrics"`
}

// GrandTotal sums every amount. Empty input gives exactly zero.
func GrandTotal(records []WageRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// TotalsByWorker groups amounts by exact worker name, ordered by name.
// Only workers present in records appear.
func TotalsByWorker(records []WageRecord) []WorkerTotal {
	byName := map[string]decimal.Decimal{}
	for _, r := range records {
		if cur, ok := byName[r.WorkerName]; ok {
			byName[r.WorkerName] = cur.Add(r.Amount)
		} else {
			byName[r.WorkerName] = r.Amount
		}
	}
	out := make([]WorkerTotal, 0, len(byName))
	for name, total := range byName {
		out = append(out, WorkerTotal{WorkerName: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkerName < out[j].WorkerName })
	return out
}

// DailyRollup buckets amounts by work date, ascending.
func DailyRollup(records []WageRecord) []PeriodTotal {
	return rollup(records, func(d Date) string { return d.String() })
}

// MonthlyRollup buckets amounts by calendar month (YYYY-MM), ascending.
func MonthlyRollup(records []WageRecord) []PeriodTotal {
	return rollup(records, Date.MonthKey)
}

// rollup relies on the bucket keys sorting lexically in date order, which
// holds for the zero padded layouts above.
func rollup(records []WageRecord, key func(Date) string) []PeriodTotal {
	idx := map[string]int{}
	var out []PeriodTotal
	for _, r := range records {
		k := key(r.WorkDate)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, PeriodTotal{Period: k, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(r.Amount)
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	if out == nil {
		out = []PeriodTotal{}
	}
	return out
}

// ComputeMetrics counts records and distinct workers and finds the extreme
// single amounts.
func ComputeMetrics(records []WageRecord) Metrics {
	m := Metrics{Count: len(records)}
	seen := map[string]struct{}{}
	for i, r := range records {
		seen[r.WorkerName] = struct{}{}
		if i == 0 || r.Amount.LessThan(m.Min.Decimal) {
			m.Min = decimal.NewNullDecimal(r.Amount)
		}
		if i == 0 || r.Amount.GreaterThan(m.Max.Decimal) {
			m.Max = decimal.NewNullDecimal(r.Amount)
		}
	}
	m.DistinctWorkers = len(seen)
	return m
}

// MinAmount returns the smallest amount, or ErrEmptyInput.
func MinAmount(records []WageRecord) (decimal.Decimal, error) {
	m := ComputeMetrics(records)
	if !m.Min.Valid {
		return decimal.Zero, ErrEmptyInput
	}
	return m.Min.Decimal, nil
}

// MaxAmount returns the largest amount, or ErrEmptyInput.
func MaxAmount(records []WageRecord) (decimal.Decimal, error) {
	m := ComputeMetrics(records)
	if !m.Max.Valid {
		return decimal.Zero, ErrEmptyInput
	}
	return m.Max.Decimal, nil
}

// Summarize derives the full summary of a view.
func Summarize(records []WageRecord) Summary {
	return Summary{
		GrandTotal: GrandTotal(records),
		ByWorker:   TotalsByWorker(records),
		Daily:      DailyRollup(records),
		Monthly:    MonthlyRollup(records),
		Metrics:    ComputeMetrics(records),
	}
}

// DatesPresent lists the distinct work dates, newest first.
func DatesPresent(records []WageRecord) []Date {
	seen := map[string]struct{}{}
	out := make([]Date, 0)
	for _, r := range records {
		k := r.WorkDate.String()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r.WorkDate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out
}
