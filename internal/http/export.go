package http

import (
	"bytes"
	"mime"
	"net/http"

	"wagebook/internal/core"
	"wagebook/internal/log"
	"wagebook/internal/report"
)

// Exports are rendered into a buffer first so an encoding failure can
// still produce an error status.

func (s *Server) handleExportRecordsCSV(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.reports.View(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, report.RecordRows(view)); err != nil {
		writeError(w, r, err)
		return
	}
	s.sendFile(w, r, "text/csv; charset=utf-8", report.RecordsCSVName, buf.Bytes(), len(view))
}

func (s *Server) handleExportSummaryCSV(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.filteredSummary(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, report.TotalRows(sum, false)); err != nil {
		writeError(w, r, err)
		return
	}
	s.sendFile(w, r, "text/csv; charset=utf-8", report.TotalsCSVName, buf.Bytes(), len(sum.ByWorker))
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.reports.View(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, view, core.Summarize(view)); err != nil {
		writeError(w, r, err)
		return
	}
	s.sendFile(w, r, report.ContentTypeXLSX, report.WorkbookName, buf.Bytes(), len(view))
}

func (s *Server) sendFile(w http.ResponseWriter, r *http.Request, contentType, name string, body []byte, rows int) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Export sent",
		log.FieldOperation, log.OpExport, "file", name, "rows", rows, "bytes", len(body))
}
