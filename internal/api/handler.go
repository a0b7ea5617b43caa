// Package api provides HTTP handlers for the newsroom simulator API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/newsroom/internal/config"
	"github.com/ashureev/newsroom/internal/domain"
	"github.com/ashureev/newsroom/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

// historyLimit caps the simulation list endpoint.
const historyLimit = 20

// Simulator runs one complete newsroom simulation.
type Simulator interface {
	Run(ctx context.Context, topic string) (*domain.SimulationResult, error)
}

// Handler handles the simulator's HTTP API.
type Handler struct {
	repo store.Repository
	sim  Simulator
	cfg  *config.Config
}

// NewHandler creates a new API handler.
func NewHandler(repo store.Repository, sim Simulator, cfg *config.Config) *Handler {
	return &Handler{
		repo: repo,
		sim:  sim,
		cfg:  cfg,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Get("/simulations", h.HandleListSimulations)
		r.Get("/simulation/{id}", h.HandleGetSimulation)
		r.Get("/budget", h.HandleBudget)
		r.Post("/simulate", h.HandleSimulate)
	})
}

// HandleHealth handles GET /api/health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	env := "production"
	if h.cfg.IsDevelopment() {
		env = "development"
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok", "env": env})
}

// HandleListSimulations handles GET /api/simulations.
func (h *Handler) HandleListSimulations(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.ListSimulations(r.Context(), historyLimit)
	if err != nil {
		slog.Error("failed to list simulations", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to fetch simulations")
		return
	}
	if records == nil {
		records = []*domain.SimulationRecord{}
	}
	JSON(w, http.StatusOK, records)
}

// HandleGetSimulation handles GET /api/simulation/{id}.
func (h *Handler) HandleGetSimulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.repo.GetSimulation(r.Context(), id)
	if err != nil {
		slog.Error("failed to fetch simulation", "id", id, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to fetch simulation")
		return
	}
	if record == nil {
		Error(w, http.StatusNotFound, "Simulation not found")
		return
	}
	JSON(w, http.StatusOK, record)
}

// HandleBudget handles GET /api/budget.
func (h *Handler) HandleBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := h.repo.DailyBudget(r.Context(), budgetDate(), h.cfg.Budget.DailyLimitUSD)
	if err != nil {
		slog.Error("failed to fetch budget", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to fetch budget")
		return
	}
	JSON(w, http.StatusOK, budget)
}

// simulateRequest is the POST /api/simulate request body.
type simulateRequest struct {
	Topic       string `json:"topic"`
	Fingerprint string `json:"fingerprint"`
}

// HandleSimulate handles POST /api/simulate: rate-limit and budget gates,
// then one full simulation run, persisted on success.
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Topic == "" {
		Error(w, http.StatusBadRequest, "Topic is required")
		return
	}

	fingerprint := req.Fingerprint
	if fingerprint == "" {
		fingerprint = fingerprintFromRequest(r)
	}

	limit, err := h.repo.CheckRateLimit(r.Context(), fingerprint, h.cfg.RateLimit.Window)
	if err != nil {
		slog.Error("rate limit check failed", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to check rate limit")
		return
	}
	if !limit.Allowed {
		JSON(w, http.StatusTooManyRequests, map[string]string{
			"error":   "Rate limit exceeded",
			"message": limit.Message,
		})
		return
	}

	budget, err := h.repo.DailyBudget(r.Context(), budgetDate(), h.cfg.Budget.DailyLimitUSD)
	if err != nil {
		slog.Error("budget check failed", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to check budget")
		return
	}
	if budget.Remaining <= 0 {
		JSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "Daily budget exceeded",
			"message": "The daily budget has been reached. Please try again tomorrow.",
		})
		return
	}

	simulationID := uuid.NewString()
	slog.Info("simulation requested", "id", simulationID, "topic", req.Topic)

	result, err := h.sim.Run(r.Context(), req.Topic)
	if err != nil {
		slog.Error("simulation failed", "id", simulationID, "error", err)
		JSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Simulation failed",
			"message": err.Error(),
		})
		return
	}

	headlines := make(map[string]domain.Article, len(result.Editions))
	for personaID, edition := range result.Editions {
		headlines[personaID] = domain.Article{
			Headline: edition.Headline,
			Story:    edition.Story,
		}
	}
	record := &domain.SimulationRecord{
		ID:              simulationID,
		Topic:           req.Topic,
		Headlines:       headlines,
		Cost:            result.Cost,
		FingerprintHash: fingerprint,
	}
	if err := h.repo.SaveSimulation(r.Context(), record); err != nil {
		// The run itself succeeded; persistence failure should not hide it.
		slog.Error("failed to save simulation", "id", simulationID, "error", err)
	}
	if err := h.repo.RecordRun(r.Context(), fingerprint); err != nil {
		slog.Error("failed to update rate limit", "error", err)
	}
	if err := h.repo.AddCost(r.Context(), budgetDate(), result.Cost); err != nil {
		slog.Error("failed to update budget", "error", err)
	}

	JSON(w, http.StatusOK, map[string]any{
		"id":     simulationID,
		"topic":  req.Topic,
		"result": result,
		"cost":   result.Cost,
	})
}

// budgetDate returns the current UTC day key for budget tracking.
func budgetDate() string {
	return time.Now().UTC().Format("2006-01-02")
}
