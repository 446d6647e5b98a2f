package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"wagebook/internal/auth"
	"wagebook/internal/core"
	"wagebook/internal/log"
	"wagebook/internal/services"
	"wagebook/internal/store/memory"
)

const (
	adminSecret  = "admin-pass"
	viewerSecret = "viewer-pass"
)

type testServer struct {
	*Server
	t *testing.T
}

func newTestServer(t *testing.T, ready func(context.Context) error, workers ...string) *testServer {
	t.Helper()
	st := memory.New(workers...)
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	listings := services.NewListings(st, nil, nil)
	a, err := auth.New(adminSecret, viewerSecret, "0123456789abcdef", time.Hour)
	require.NoError(t, err)

	srv := NewServer(Options{Addr: ":0", RateLimit: 1000}, Deps{
		Ledger:  services.NewLedgerService(st, listings, nil, logger),
		Reports: services.NewReportService(listings),
		Auth:    a,
		Ready:   ready,
		Logger:  logger,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, t: t}
}

func (ts *testServer) do(method, target, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, target, nil)
	case url.Values:
		req = httptest.NewRequest(method, target, strings.NewReader(b.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) login(secret string) string {
	ts.t.Helper()
	rr := ts.do(http.MethodPost, "/login", "", map[string]string{"secret": secret})
	require.Equal(ts.t, http.StatusOK, rr.Code, rr.Body.String())
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			assert.True(ts.t, c.HttpOnly)
			return c.Value
		}
	}
	ts.t.Fatal("no session cookie set")
	return ""
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func record(worker, date, salary string) map[string]string {
	return map[string]string{"worker_name": worker, "date": date, "salary": salary}
}

func seedRamShyam(ts *testServer, admin string) {
	ts.t.Helper()
	for _, body := range []map[string]string{
		record("Ram", "2024-01-05", "500"),
		record("Shyam", "2024-01-05", "700"),
		record("Ram", "2024-01-06", "600"),
	} {
		rr := ts.do(http.MethodPost, "/api/records", admin, body)
		require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	}

	down := newTestServer(t, func(context.Context) error { return errors.New("db gone") })
	assert.Equal(t, http.StatusServiceUnavailable, down.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.do(http.MethodPost, "/login", "", map[string]string{"secret": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.do(http.MethodPost, "/login", "", url.Values{"secret": {viewerSecret}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "viewer", decode[map[string]any](t, rr)["role"])

	rr = ts.do(http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Negative(t, rr.Result().Cookies()[0].MaxAge)
}

func TestRoleGate(t *testing.T) {
	ts := newTestServer(t, nil)
	viewer := ts.login(viewerSecret)

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/records", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/records", "forged", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/records", viewer, nil).Code)

	rr := ts.do(http.MethodPost, "/api/records", viewer, record("Ram", "2024-01-05", "500"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodDelete, "/api/records/1", viewer, nil).Code)
}

func TestBearerToken(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(adminSecret)

	req := httptest.NewRequest(http.MethodGet, "/api/workers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRecordsFilterAndSummary(t *testing.T) {
	ts := newTestServer(t, nil, "Ram", "Shyam")
	admin := ts.login(adminSecret)
	seedRamShyam(ts, admin)
	viewer := ts.login(viewerSecret)

	type listing struct {
		Records    []core.WageRecord `json:"records"`
		Count      int               `json:"count"`
		GrandTotal string            `json:"grand_total"`
	}

	all := decode[listing](t, ts.do(http.MethodGet, "/api/records", viewer, nil))
	assert.Equal(t, 3, all.Count)
	assert.Equal(t, "1800", all.GrandTotal)
	assert.Equal(t, "2024-01-06", all.Records[0].WorkDate.String(), "newest first")

	ram := decode[listing](t, ts.do(http.MethodGet, "/api/records?worker=Ram", viewer, nil))
	assert.Equal(t, 2, ram.Count)
	assert.Equal(t, "1100", ram.GrandTotal)

	day := decode[listing](t, ts.do(http.MethodGet, "/api/records?from=2024-01-06&to=2024-01-06", viewer, nil))
	require.Equal(t, 1, day.Count)
	assert.Equal(t, "600", day.GrandTotal)

	inverted := decode[listing](t, ts.do(http.MethodGet, "/api/records?from=2024-01-06&to=2024-01-05", viewer, nil))
	assert.Zero(t, inverted.Count)
	assert.Equal(t, "0", inverted.GrandTotal)

	rr := ts.do(http.MethodGet, "/api/records?from=06-01-2024", viewer, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	sum := decode[core.Summary](t, ts.do(http.MethodGet, "/api/summary", viewer, nil))
	assert.Equal(t, "1800", sum.GrandTotal.String())
	require.Len(t, sum.ByWorker, 2)
	assert.Equal(t, "Ram", sum.ByWorker[0].WorkerName)
	assert.Equal(t, "1100", sum.ByWorker[0].Total.String())
	assert.Equal(t, "500", sum.Metrics.Min.Decimal.String())

	daily := decode[map[string][]core.PeriodTotal](t, ts.do(http.MethodGet, "/api/rollup/daily", viewer, nil))
	require.Len(t, daily["daily"], 2)
	assert.Equal(t, "1200", daily["daily"][0].Total.String())

	monthly := decode[map[string][]core.PeriodTotal](t, ts.do(http.MethodGet, "/api/rollup/monthly?worker=Shyam", viewer, nil))
	require.Len(t, monthly["monthly"], 1)
	assert.Equal(t, "2024-01", monthly["monthly"][0].Period)
	assert.Equal(t, "700", monthly["monthly"][0].Total.String())

	dates := decode[map[string][]string](t, ts.do(http.MethodGet, "/api/dates", viewer, nil))
	assert.Equal(t, []string{"2024-01-06", "2024-01-05"}, dates["dates"])
}

func TestEmptySummaryHasNullMinMax(t *testing.T) {
	ts := newTestServer(t, nil)
	viewer := ts.login(viewerSecret)

	body := decode[map[string]any](t, ts.do(http.MethodGet, "/api/summary", viewer, nil))
	assert.Equal(t, "0", body["grand_total"])
	metrics := body["metrics"].(map[string]any)
	assert.Nil(t, metrics["min_amount"])
	assert.Nil(t, metrics["max_amount"])
}

func TestRecordWriteErrors(t *testing.T) {
	ts := newTestServer(t, nil, "Ram")
	admin := ts.login(adminSecret)

	rr := ts.do(http.MethodPost, "/api/records", admin, record("Ram", "2024-01-05", "-5"))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decode[errorBody](t, rr)
	assert.Contains(t, body.Fields, "salary")

	rr = ts.do(http.MethodPost, "/api/records", admin, map[string]string{"worker_name": "Ram", "bogus": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPut, "/api/records/99", admin, record("Ram", "2024-01-05", "5"))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(http.MethodDelete, "/api/records/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateAndDeleteRecord(t *testing.T) {
	ts := newTestServer(t, nil, "Ram", "Shyam")
	admin := ts.login(adminSecret)
	seedRamShyam(ts, admin)

	form := url.Values{"worker_name": {"Ram"}, "date": {"2024-01-05"}, "salary": {"550"}, "notes": {"overtime"}}
	rr := ts.do(http.MethodPut, "/api/records/1", admin, form)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[core.WageRecord](t, rr)
	assert.Equal(t, "550", updated.Amount.String())
	assert.Equal(t, "overtime", updated.Note)

	require.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/records/2", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/records/2", admin, nil).Code)

	sum := decode[core.Summary](t, ts.do(http.MethodGet, "/api/summary", admin, nil))
	require.Len(t, sum.ByWorker, 1, "Shyam has no records left")
	assert.Equal(t, "1150", sum.GrandTotal.String())
}

func TestWorkers(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.login(adminSecret)

	rr := ts.do(http.MethodPost, "/api/workers", admin, map[string]string{"worker_name": "Ram", "contact": "98xxxx"})
	require.Equal(t, http.StatusCreated, rr.Code)
	ram := decode[core.Worker](t, rr)

	rr = ts.do(http.MethodPost, "/api/workers", admin, map[string]string{"worker_name": "Ram"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	// a record for an unknown worker registers them
	rr = ts.do(http.MethodPost, "/api/records", admin, record("Gita", "2024-02-01", "450"))
	require.Equal(t, http.StatusCreated, rr.Code)

	list := decode[map[string][]core.Worker](t, ts.do(http.MethodGet, "/api/workers", admin, nil))
	require.Len(t, list["workers"], 2)
	assert.Equal(t, "Gita", list["workers"][0].Name)

	require.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/api/workers/"+itoa(ram.ID), admin, nil).Code)
	list = decode[map[string][]core.Worker](t, ts.do(http.MethodGet, "/api/workers", admin, nil))
	assert.Len(t, list["workers"], 1)
}

func TestExports(t *testing.T) {
	ts := newTestServer(t, nil, "Ram", "Shyam")
	admin := ts.login(adminSecret)
	seedRamShyam(ts, admin)

	rr := ts.do(http.MethodGet, "/export/records.csv?worker=Ram", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "filtered_salaries.csv")
	rows, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"date", "worker_name", "salary", "notes"},
		{"2024-01-06", "Ram", "600", ""},
		{"2024-01-05", "Ram", "500", ""},
	}, rows)

	rr = ts.do(http.MethodGet, "/export/summary.csv", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "worker_name,total\nRam,1100\nShyam,700\n", rr.Body.String())

	rr = ts.do(http.MethodGet, "/export/records.xlsx", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	f, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	defer f.Close()
	totals, err := f.GetRows("Totals")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grand total", "1800"}, totals[len(totals)-1])
}

func TestWriteRateLimit(t *testing.T) {
	ts := newTestServer(t, nil)
	limited := NewServer(Options{RateLimit: 2}, Deps{
		Ledger:  ts.ledger,
		Reports: ts.reports,
		Auth:    ts.auth,
		Logger:  log.New(log.Config{Output: &bytes.Buffer{}}),
	})
	t.Cleanup(func() { _ = limited.Shutdown(context.Background()) })
	lts := &testServer{Server: limited, t: t}

	codes := []int{}
	for range 3 {
		codes = append(codes, lts.do(http.MethodPost, "/login", "", map[string]string{"secret": "wrong"}).Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
	assert.Equal(t, http.StatusOK, lts.do(http.MethodGet, "/healthz", "", nil).Code, "reads are not limited")
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
