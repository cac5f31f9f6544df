package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/centsible/centsible/internal/engine"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/period"
)

type syncResponse struct {
	RulesProcessed int `json:"rules_processed"`
	EntriesCreated int `json:"entries_created"`
	RulesFailed    int `json:"rules_failed,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncer.SyncAll(r.Context(), s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sync failed: "+err.Error())
		return
	}

	resp := syncResponse{
		RulesProcessed: result.RulesProcessed,
		EntriesCreated: result.EntriesCreated,
		RulesFailed:    result.RulesFailed,
	}
	if result.Failed() {
		// Partial progress still gets reported so the scheduler can see how
		// far the run got before deciding to retry.
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	result, err := s.rollover.Run(r.Context(), s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "rollover failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"budgets_processed":   result.Processed,
		"budgets_rolled_over": result.RolledOver,
		"budgets_failed":      result.Failed,
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	now := s.now()
	rng := period.Month(now)
	if token := r.URL.Query().Get("period"); token != "" {
		parsed, err := period.ParseMonth(token)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rng = parsed
	}

	result, err := s.forecaster.Forecast(r.Context(), ownerID, rng, now)
	if err != nil {
		slog.Error("forecast failed", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "forecast unavailable")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type spendingCheckRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
}

type spendingCheckResponse struct {
	Alerts []model.Alert `json:"alerts"`
}

// handleSpendingCheck evaluates a hypothetical expense against the current
// period's budget before the caller commits it.
func (s *Server) handleSpendingCheck(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	var req spendingCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	now := s.now()
	rng := period.Month(now)

	budget, err := s.budgets.FindBudget(r.Context(), ownerID, rng.Start)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "budget lookup failed")
		return
	}

	overall, err := s.ledger.SumAmount(r.Context(), ownerID, rng, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "spending lookup failed")
		return
	}
	byCategory, err := s.ledger.SumByCategory(r.Context(), ownerID, rng)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "spending lookup failed")
		return
	}

	alerts := engine.EvaluateAlerts(budget,
		engine.PeriodTotals{Overall: overall, ByCategory: byCategory},
		&engine.Candidate{Amount: req.Amount, Category: req.Category})

	if len(alerts) > 0 {
		if err := s.sink.Emit(r.Context(), ownerID, alerts); err != nil {
			slog.Error("alert emission failed", "owner_id", ownerID, "error", err)
		}
	}

	resp := spendingCheckResponse{Alerts: alerts}
	if resp.Alerts == nil {
		resp.Alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, resp)
}
