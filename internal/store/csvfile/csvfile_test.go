package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wagebook/internal/core"
	"wagebook/internal/store"
	"wagebook/internal/store/storetest"
)

func TestCSVStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.RecordStore {
		s, err := New(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestReadsLegacyFilesWithoutIDs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile),
		[]byte("date,worker_name,salary,notes\n2024-01-05,Ram,500,\n2024-01-05,Shyam,700,night shift\n2024-01-06,Ram,600,\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, WorkersFile),
		[]byte("worker_name\nShyam\nRam\n"), 0644))

	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	records, err := s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1800", core.GrandTotal(records).String())
	assert.Equal(t, int64(3), records[0].ID)
	assert.Equal(t, "night shift", records[2].Note)

	workers, err := s.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, "Ram", workers[0].Name)
	assert.Equal(t, int64(2), workers[0].ID)

	id, err := s.InsertRecord(ctx, core.WageRecord{WorkerName: "Gita", WorkDate: core.NewDate(2024, 1, 7), Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	b, err := os.ReadFile(filepath.Join(dir, RecordsFile))
	require.NoError(t, err)
	assert.Equal(t,
		"id,date,worker_name,category,salary,notes\n"+
			"1,2024-01-05,Ram,,500,\n"+
			"2,2024-01-05,Shyam,,700,night shift\n"+
			"3,2024-01-06,Ram,,600,\n"+
			"4,2024-01-07,Gita,,50,\n",
		string(b))
}

func TestFailedValidationLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.InsertRecord(ctx, core.WageRecord{WorkerName: "Ram", WorkDate: core.NewDate(2024, 1, 5), Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(dir, RecordsFile))
	require.NoError(t, err)

	_, err = s.InsertRecord(ctx, core.WageRecord{WorkerName: "", WorkDate: core.NewDate(2024, 1, 5), Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, core.ErrValidation)

	after, err := os.ReadFile(filepath.Join(dir, RecordsFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{RecordsFile, CounterFile}, names, "no temp files left behind")
}

func TestMissingColumnIsReported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile), []byte("date,salary\n2024-01-05,1\n"), 0644))
	s, err := New(dir)
	require.NoError(t, err)
	_, err = s.ListRecords(context.Background())
	assert.ErrorContains(t, err, "missing column worker_name")
}

func TestBadAmountIsValidationError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile), []byte("date,worker_name,salary\n2024-01-05,Ram,lots\n"), 0644))
	s, err := New(dir)
	require.NoError(t, err)
	_, err = s.ListRecords(context.Background())
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestReadsLegacyDataFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LegacyRecordsFile),
		[]byte("date,worker_name,salary,notes\n2024-01-05,Ram,500.0,\n2024-01-06,Shyam,700.0,\n"), 0644))

	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	records, err := s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1200", core.GrandTotal(records).String())

	require.NoError(t, s.DeleteRecord(ctx, 2))
	_, err = os.Stat(filepath.Join(dir, RecordsFile))
	require.NoError(t, err, "first write moves the ledger to records.csv")

	records, err = s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ram", records[0].WorkerName)
}

func TestDeletedIDStaysRetiredAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	rec := func(name string) core.WageRecord {
		return core.WageRecord{WorkerName: name, WorkDate: core.NewDate(2024, 1, 5), Amount: decimal.NewFromInt(10)}
	}

	s, err := New(dir)
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, rec("Ram"))
	require.NoError(t, err)
	shyam, err := s.InsertRecord(ctx, rec("Shyam"))
	require.NoError(t, err)
	require.NoError(t, s.DeleteRecord(ctx, shyam))

	reopened, err := New(dir)
	require.NoError(t, err)
	gita, err := reopened.InsertRecord(ctx, rec("Gita"))
	require.NoError(t, err)
	assert.Equal(t, shyam+1, gita)
	assert.ErrorIs(t, reopened.DeleteRecord(ctx, shyam), core.ErrNotFound)

	b, err := os.ReadFile(filepath.Join(dir, CounterFile))
	require.NoError(t, err)
	assert.Equal(t, "table,next_id\nrecords,4\n", string(b))
}

func TestBadCounterFileIsReported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CounterFile), []byte("table,next_id\nrecords,many\n"), 0644))
	s, err := New(dir)
	require.NoError(t, err)
	_, err = s.InsertRecord(context.Background(), core.WageRecord{WorkerName: "Ram", WorkDate: core.NewDate(2024, 1, 5), Amount: decimal.NewFromInt(1)})
	assert.ErrorContains(t, err, "invalid next_id")

	_, err = os.Stat(filepath.Join(dir, RecordsFile))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestByteOrderMarkBeforeHeader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile),
		[]byte("\uFEFFdate,worker_name,salary\n2024-01-05,Ram,500\n"), 0644))
	s, err := New(dir)
	require.NoError(t, err)

	records, err := s.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ram", records[0].WorkerName)
}
