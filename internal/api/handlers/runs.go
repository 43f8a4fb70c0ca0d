package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/optincome/internal/audit"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/pkg/logger"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// RunHandler serves stored screening runs
// ⭐ SSOT: 실행 결과 조회 API는 여기서만
type RunHandler struct {
	store  contracts.RunStore
	logger *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(store contracts.RunStore, log *logger.Logger) *RunHandler {
	return &RunHandler{
		store:  store,
		logger: log,
	}
}

// ListRuns handles GET /api/v1/runs?limit=N
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetLatestRun handles GET /api/v1/runs/latest
func (h *RunHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetLatestRun(r.Context())
	if err != nil {
		h.respondStoreError(w, err, "latest")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// GetRun handles GET /api/v1/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// GetCandidates handles GET /api/v1/runs/{id}/candidates?ticker=&strategy=&bucket=
func (h *RunHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	ticker := strings.ToUpper(strings.TrimSpace(q.Get("ticker")))
	strategy := strings.ToUpper(strings.TrimSpace(q.Get("strategy")))
	bucket := strings.ToLower(strings.TrimSpace(q.Get("bucket")))

	if strategy != "" && strategy != string(contracts.StrategyPut) && strategy != string(contracts.StrategyCall) {
		respondError(w, http.StatusBadRequest, "strategy must be PUT or CALL")
		return
	}

	filtered := make([]contracts.ScreeningCandidate, 0)
	for _, c := range run.Candidates {
		if ticker != "" && c.Ticker != ticker {
			continue
		}
		if strategy != "" && string(c.Strategy) != strategy {
			continue
		}
		if bucket != "" && string(c.Bucket) != bucket {
			continue
		}
		filtered = append(filtered, c)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":     run.RunID,
		"candidates": filtered,
		"count":      len(filtered),
	})
}

// GetRecommendations handles GET /api/v1/runs/{id}/recommendations/{strategy}
func (h *RunHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	var pick func(*contracts.RunResult) []contracts.RecommendationVerdict
	switch strings.ToLower(mux.Vars(r)["strategy"]) {
	case "put", "csp":
		pick = func(run *contracts.RunResult) []contracts.RecommendationVerdict { return run.PutVerdicts }
	case "call", "cc":
		pick = func(run *contracts.RunResult) []contracts.RecommendationVerdict { return run.CallVerdicts }
	default:
		respondError(w, http.StatusBadRequest, "strategy must be put or call")
		return
	}

	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	verdicts := pick(run)
	if verdicts == nil {
		verdicts = []contracts.RecommendationVerdict{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":          run.RunID,
		"recommendations": verdicts,
		"count":           len(verdicts),
	})
}

// loadRun resolves {id}; "latest" is accepted as an alias.
func (h *RunHandler) loadRun(w http.ResponseWriter, r *http.Request) (*contracts.RunResult, bool) {
	id := mux.Vars(r)["id"]

	var (
		run *contracts.RunResult
		err error
	)
	if id == "latest" {
		run, err = h.store.GetLatestRun(r.Context())
	} else {
		run, err = h.store.GetRun(r.Context(), id)
	}
	if err != nil {
		h.respondStoreError(w, err, id)
		return nil, false
	}
	return run, true
}

func (h *RunHandler) respondStoreError(w http.ResponseWriter, err error, id string) {
	if errors.Is(err, audit.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found: "+id)
		return
	}
	h.logger.WithError(err).WithRunID(id).Error("Failed to load run")
	respondError(w, http.StatusInternalServerError, "Failed to load run")
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
