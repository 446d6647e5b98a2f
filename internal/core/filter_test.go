package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestApplyFilterByWorker(t *testing.T) {
	got := ApplyFilter(ramShyam(), Filter{Worker: "Ram"})
	require.Len(t, got, 2)
	assert.Equal(t, "1100", GrandTotal(got).String())
	for _, r := range got {
		assert.Equal(t, "Ram", r.WorkerName)
	}
}

func TestApplyFilterWorkerIsExactMatch(t *testing.T) {
	assert.Empty(t, ApplyFilter(ramShyam(), Filter{Worker: "ram"}))
	assert.Empty(t, ApplyFilter(ramShyam(), Filter{Worker: "Ram "}))
}

func TestApplyFilterSingleDay(t *testing.T) {
	day := mustDate(t, "2024-01-06")
	got := ApplyFilter(ramShyam(), Filter{From: day, To: day})
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, "600", GrandTotal(got).String())
}

func TestApplyFilterInvertedRangeIsEmpty(t *testing.T) {
	got := ApplyFilter(ramShyam(), Filter{From: mustDate(t, "2024-01-06"), To: mustDate(t, "2024-01-05")})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestApplyFilterBoundsAreInclusive(t *testing.T) {
	got := ApplyFilter(ramShyam(), Filter{From: mustDate(t, "2024-01-05"), To: mustDate(t, "2024-01-06")})
	assert.Len(t, got, 3)
}

func TestApplyFilterDefaultsToFullRange(t *testing.T) {
	records := ramShyam()
	assert.Equal(t, records, ApplyFilter(records, Filter{}))

	// only a lower bound: upper bound defaults to the latest date present
	got := ApplyFilter(records, Filter{From: mustDate(t, "2024-01-06")})
	assert.Len(t, got, 1)

	// default range follows the current set, not a previous one
	more := append(append([]WageRecord{}, records...), rec(4, "Gita", "2024-03-01", 50))
	assert.Len(t, ApplyFilter(more, Filter{From: mustDate(t, "2024-01-06")}), 2)
}

func TestApplyFilterPropertiesAndPurity(t *testing.T) {
	records := ramShyam()
	before := append([]WageRecord{}, records...)
	filters := []Filter{
		{},
		{Worker: "Shyam"},
		{From: mustDate(t, "2024-01-01"), To: mustDate(t, "2024-01-05")},
		{From: mustDate(t, "2025-01-01")},
		{To: mustDate(t, "2023-01-01")},
	}
	for i, f := range filters {
		got := ApplyFilter(records, f)
		assert.LessOrEqual(t, len(got), len(records), "filter %d", i)
		rng := f.Range(records)
		for _, r := range got {
			assert.True(t, rng.Contains(r.WorkDate), "filter %d: %s outside range", i, r.WorkDate)
		}
	}
	assert.Equal(t, before, records, "input must not be mutated")
}

func TestApplyFilterEmptyInput(t *testing.T) {
	got := ApplyFilter(nil, Filter{Worker: "Ram"})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDefaultRange(t *testing.T) {
	_, ok := DefaultRange(nil)
	assert.False(t, ok)

	r, ok := DefaultRange(ramShyam())
	require.True(t, ok)
	assert.Equal(t, "2024-01-05", r.From.String())
	assert.Equal(t, "2024-01-06", r.To.String())
}

func TestSortView(t *testing.T) {
	records := []WageRecord{
		rec(5, "A", "2024-01-05", 1),
		rec(2, "B", "2024-01-06", 1),
		rec(1, "C", "2024-01-05", 1),
		rec(9, "D", "2024-01-07", 1),
	}
	SortView(records)
	ids := []int64{}
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{9, 2, 1, 5}, ids)
}
