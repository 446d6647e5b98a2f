package core

import (
	"slices"
)

// Filter selects the records shown to the user. Zero From/To mean "no bound":
// they default to the earliest/latest work date of the input being filtered.
type Filter struct {
	From   Date
	To     Date
	Worker string // exact, case-sensitive match; empty means all workers
}

// DateRange is an inclusive [From, To] span of calendar days.
type DateRange struct {
	From Date
	To   Date
}

// Contains reports whether d falls inside the inclusive range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// DefaultRange returns the span between the earliest and latest work date in
// records. ok is false for empty input.
func DefaultRange(records []WageRecord) (r DateRange, ok bool) {
	for i, rec := range records {
		if i == 0 {
			r = DateRange{From: rec.WorkDate, To: rec.WorkDate}
			continue
		}
		if rec.WorkDate.Before(r.From) {
			r.From = rec.WorkDate
		}
		if rec.WorkDate.After(r.To) {
			r.To = rec.WorkDate
		}
	}
	return r, len(records) > 0
}

// Range resolves the filter bounds against records, filling missing bounds
// from DefaultRange. It is recomputed on every call.
func (f Filter) Range(records []WageRecord) DateRange {
	def, _ := DefaultRange(records)
	r := DateRange{From: f.From, To: f.To}
	if r.From.IsZero() {
		r.From = def.From
	}
	if r.To.IsZero() {
		r.To = def.To
	}
	return r
}

// ApplyFilter returns the records matching f, in input order. The input is
// never modified. An inverted range yields an empty, non-nil slice.
func ApplyFilter(records []WageRecord, f Filter) []WageRecord {
	out := make([]WageRecord, 0, len(records))
	if len(records) == 0 {
		return out
	}
	rng := f.Range(records)
	if rng.From.After(rng.To) {
		return out
	}
	for _, rec := range records {
		if !rng.Contains(rec.WorkDate) {
			continue
		}
		if f.Worker != "" && rec.WorkerName != f.Worker {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// SortView orders records newest work date first, ties by ascending ID.
func SortView(records []WageRecord) {
	slices.SortStableFunc(records, func(a, b WageRecord) int {
		if c := b.WorkDate.Compare(a.WorkDate.Time); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
