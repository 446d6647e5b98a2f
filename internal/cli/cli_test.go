package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"wagebook/internal/core"
	"wagebook/internal/report"
	"wagebook/internal/store/csvfile"
)

// seedCSV points the environment at a fresh csv backend holding three
// records: Ram 500 + 600, Shyam 700.
func seedCSV(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "csv")
	t.Setenv("CSV_DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")

	s, err := csvfile.New(dir)
	require.NoError(t, err)
	for _, r := range []struct {
		name   string
		amount int64
		date   core.Date
	}{
		{"Ram", 500, core.NewDate(2024, 1, 1)},
		{"Shyam", 700, core.NewDate(2024, 1, 1)},
		{"Ram", 600, core.NewDate(2024, 1, 2)},
	} {
		_, err := s.InsertRecord(context.Background(), core.WageRecord{
			WorkerName: r.name,
			Amount:     decimal.NewFromInt(r.amount),
			WorkDate:   r.date,
		})
		require.NoError(t, err)
	}
	return dir
}

func run(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), err
}

func TestSummaryPrintsTotals(t *testing.T) {
	seedCSV(t)

	out, err := run(t, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "records   3")
	assert.Regexp(t, `Ram\s+1100`, out)
	assert.Regexp(t, `Shyam\s+700`, out)
	assert.Regexp(t, `Grand total\s+1800`, out)
}

func TestSummaryJSONWithFilter(t *testing.T) {
	seedCSV(t)

	out, err := run(t, "summary", "--json", "--worker", "Ram", "--from", "2024-01-02")
	require.NoError(t, err)

	var sum core.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.True(t, sum.GrandTotal.Equal(decimal.NewFromInt(600)))
	require.Len(t, sum.ByWorker, 1)
	assert.Equal(t, "Ram", sum.ByWorker[0].WorkerName)
}

func TestSummaryRejectsBadDate(t *testing.T) {
	seedCSV(t)

	_, err := run(t, "summary", "--from", "01/02/2024")
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestExportRecordsCSVToStdout(t *testing.T) {
	seedCSV(t)

	out, err := run(t, "export", "--worker", "Ram")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(report.RecordsHeader, ","), lines[0])
	assert.Equal(t, "2024-01-02,Ram,600,", lines[1])
	assert.Equal(t, "2024-01-01,Ram,500,", lines[2])
}

func TestExportTotalsCSV(t *testing.T) {
	seedCSV(t)
	path := filepath.Join(t.TempDir(), report.TotalsCSVName)

	_, err := run(t, "export", "--totals", "--out", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "worker_name,total\nRam,1100\nShyam,700\n", string(data))
}

func TestExportWorkbook(t *testing.T) {
	seedCSV(t)
	path := filepath.Join(t.TempDir(), report.WorkbookName)

	_, err := run(t, "export", "--format", "xlsx", "--out", path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.RecordsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	totals, err := f.GetRows(report.TotalsSheet)
	require.NoError(t, err)
	assert.Equal(t, report.GrandTotalLabel, totals[len(totals)-1][0])
}

func TestExportRejectsBadFlags(t *testing.T) {
	seedCSV(t)

	_, err := run(t, "export", "--format", "pdf")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "export", "--format", "xlsx", "--totals")
	assert.ErrorContains(t, err, "only supported with csv")
}

func TestServeValidatesConfig(t *testing.T) {
	seedCSV(t)
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := run(t, "serve")
	assert.ErrorContains(t, err, "ADMIN_PASSWORD is required")
}

func TestMirrorRequiresBroker(t *testing.T) {
	seedCSV(t)
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")

	_, err := run(t, "mirror")
	assert.ErrorContains(t, err, "AMQP_URL is required")
}

func TestBadLogLevelFlag(t *testing.T) {
	seedCSV(t)

	_, err := run(t, "summary", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestLoadEnvFile(t *testing.T) {
	const key = "WAGEBOOK_ENV_FILE_PROBE"
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(key) })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv(key))

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestEnvFileFlag(t *testing.T) {
	dir := seedCSV(t)
	t.Setenv("CSV_DATA_DIR", "")
	os.Unsetenv("CSV_DATA_DIR")
	path := filepath.Join(t.TempDir(), "wagebook.env")
	require.NoError(t, os.WriteFile(path, []byte("CSV_DATA_DIR="+dir+"\n"), 0o600))

	out, err := run(t, "--env-file", path, "summary")
	require.NoError(t, err)
	assert.Regexp(t, `Grand total\s+1800`, out)
}
