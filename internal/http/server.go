// Package http serves the wage ledger as a JSON API with CSV and XLSX
// downloads.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"wagebook/internal/auth"
	"wagebook/internal/log"
	"wagebook/internal/middleware/ratelimit"
	"wagebook/internal/middleware/security"
	"wagebook/internal/middleware/trace"
	"wagebook/internal/services"
)

// Options are the transport settings of a Server.
type Options struct {
	Addr          string
	RateLimit     int  // write requests per client per minute
	SecureCookies bool // set the Secure flag on the session cookie
}

// Deps are the services a Server exposes. Ready may be nil.
type Deps struct {
	Ledger  *services.LedgerService
	Reports *services.ReportService
	Auth    *auth.Authenticator
	Ready   func(context.Context) error
	Logger  *log.Logger
}

type Server struct {
	http.Server
	ledger        *services.LedgerService
	reports       *services.ReportService
	auth          *auth.Authenticator
	ready         func(context.Context) error
	logger        *log.Logger
	limiter       *ratelimit.Limiter
	detector      *security.Detector
	secureCookies bool
	shutdownOnce  sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledger:        deps.Ledger,
		reports:       deps.Reports,
		auth:          deps.Auth,
		ready:         deps.Ready,
		logger:        logger,
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit}),
		detector:      security.NewDetector(),
		secureCookies: opts.SecureCookies,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.Handle("GET /api/records", s.viewer(s.handleListRecords))
	mux.Handle("POST /api/records", s.admin(s.handleCreateRecord))
	mux.Handle("PUT /api/records/{id}", s.admin(s.handleUpdateRecord))
	mux.Handle("DELETE /api/records/{id}", s.admin(s.handleDeleteRecord))

	mux.Handle("GET /api/workers", s.viewer(s.handleListWorkers))
	mux.Handle("POST /api/workers", s.admin(s.handleCreateWorker))
	mux.Handle("DELETE /api/workers/{id}", s.admin(s.handleDeleteWorker))

	mux.Handle("GET /api/summary", s.viewer(s.handleSummary))
	mux.Handle("GET /api/rollup/daily", s.viewer(s.handleDailyRollup))
	mux.Handle("GET /api/rollup/monthly", s.viewer(s.handleMonthlyRollup))
	mux.Handle("GET /api/dates", s.viewer(s.handleDates))

	mux.Handle("GET /export/records.csv", s.viewer(s.handleExportRecordsCSV))
	mux.Handle("GET /export/summary.csv", s.viewer(s.handleExportSummaryCSV))
	mux.Handle("GET /export/records.xlsx", s.viewer(s.handleExportXLSX))

	writes := func(r *http.Request) bool {
		return r.Method != http.MethodGet && r.Method != http.MethodHead
	}
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
	}

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ClientIP, writes, onLimit)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(logger, s.detector.ClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
