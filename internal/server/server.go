// Package server exposes the forecasting engines over HTTP: scheduler-facing
// trigger endpoints guarded by a shared secret, and read-side endpoints for
// forecasts and pre-commit spending checks.
package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/centsible/centsible/internal/engine"
	"github.com/centsible/centsible/internal/service"
)

// Server wires the engines and their HTTP routes together.
type Server struct {
	syncer     *engine.Syncer
	rollover   *engine.RolloverProcessor
	forecaster *engine.Forecaster
	ledger     service.LedgerStore
	budgets    service.BudgetStore
	sink       service.AlertSink
	secret     string
	now        func() time.Time
}

// Config carries the server's collaborators.
type Config struct {
	Syncer     *engine.Syncer
	Rollover   *engine.RolloverProcessor
	Forecaster *engine.Forecaster
	Ledger     service.LedgerStore
	Budgets    service.BudgetStore
	Sink       service.AlertSink

	// TriggerSecret guards the /internal endpoints. Empty disables them.
	TriggerSecret string

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// New creates a Server from its collaborators.
func New(cfg Config) *Server {
	s := &Server{
		syncer:     cfg.Syncer,
		rollover:   cfg.Rollover,
		forecaster: cfg.Forecaster,
		ledger:     cfg.Ledger,
		budgets:    cfg.Budgets,
		sink:       cfg.Sink,
		secret:     cfg.TriggerSecret,
		now:        cfg.Now,
	}
	if s.sink == nil {
		s.sink = LogSink{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(s.requireSecret)
		r.Post("/sync", s.handleSync)
		r.Post("/rollover", s.handleRollover)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/forecast", s.handleForecast)
		r.Post("/spending-check", s.handleSpendingCheck)
	})

	return r
}

// requireSecret rejects trigger requests before any work happens. The
// comparison is constant time so the secret cannot be probed byte by byte.
func (s *Server) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.secret == "" {
			writeError(w, http.StatusUnauthorized, "trigger endpoints are disabled")
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid trigger credential")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
