package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"wagebook/internal/core"
)

type recordsResponse struct {
	Records    []core.WageRecord `json:"records"`
	Count      int               `json:"count"`
	GrandTotal decimal.Decimal   `json:"grand_total"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, recordsResponse{Records: view, Count: len(view), GrandTotal: core.GrandTotal(view)})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	in, err := decodeRecordInput(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rec, err := s.ledger.AddRecord(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeRecordInput(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rec, err := s.ledger.UpdateRecord(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteRecord(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := s.ledger.Workers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workers": workers})
}

func (s *Server) handleCreateWorker(w http.ResponseWriter, r *http.Request) {
	in, err := decodeWorkerInput(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	worker, err := s.ledger.RegisterWorker(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, worker)
}

func (s *Server) handleDeleteWorker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteWorker(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// filteredSummary runs the summary for the request's filter, writing the
// error response itself when it fails.
func (s *Server) filteredSummary(w http.ResponseWriter, r *http.Request) (core.Summary, bool) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return core.Summary{}, false
	}
	sum, err := s.reports.Summary(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return core.Summary{}, false
	}
	return sum, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if sum, ok := s.filteredSummary(w, r); ok {
		writeJSON(w, http.StatusOK, sum)
	}
}

func (s *Server) handleDailyRollup(w http.ResponseWriter, r *http.Request) {
	if sum, ok := s.filteredSummary(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{"daily": sum.Daily})
	}
}

func (s *Server) handleMonthlyRollup(w http.ResponseWriter, r *http.Request) {
	if sum, ok := s.filteredSummary(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{"monthly": sum.Monthly})
	}
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dates, err := s.reports.Dates(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}
