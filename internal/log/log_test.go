package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})

	logger.Info("saved", FieldRecordID, 7)
	logger.WithComponent(ComponentCache).Debug("evicted")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "record_id=7") {
		t.Errorf("missing fields in %q", out)
	}
	if !strings.Contains(out, "component=cache") {
		t.Errorf("component override missing in %q", out)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: slog.LevelInfo, Output: &buf}).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug entry written at info level: %q", buf.String())
	}
}

func TestContextLoggerKeepsFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf, Component: ComponentHTTP})

	ctx := NewContext(context.Background(), base.With(FieldRequestID, "req-42"))
	FromContext(ctx).InfoContext(ctx, "handling")

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("request id missing in %q", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Errorf("unexpected fallback logger %+v", l)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})
	sl := NewStructuredLogger(base)
	ctx := NewContext(context.Background(), base)

	r := httptest.NewRequest(http.MethodPost, "/api/records", nil)
	sl.LogHTTPEnd(ctx, r, 503, 12, "10.0.0.1")
	sl.LogError(ctx, "insert failed", errors.New("disk full"), ComponentWorker, OpCreate, nil)
	sl.LogRecordChange(ctx, OpUpdate, 3, "Ram", "600", "2024-01-06")

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status_code=503", `error="disk full"`, "Wage record updated", "worker_name=Ram"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
