// Package handlers provides HTTP handlers for target allocation configuration.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/rebalancer/internal/modules/allocation"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// TargetProvider exposes the configured target set
type TargetProvider interface {
	Targets() []rebalancing.AssetTarget
	DefaultContribution() float64
}

// Handler handles allocation HTTP requests
type Handler struct {
	provider TargetProvider
	log      zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(provider TargetProvider, log zerolog.Logger) *Handler {
	return &Handler{
		provider: provider,
		log:      log.With().Str("handler", "allocation").Logger(),
	}
}

// NormalizeRequest carries raw target weights to rescale
type NormalizeRequest struct {
	Targets []rebalancing.AssetTarget `json:"targets"`
}

// categoryTarget is the target weight of one category
type categoryTarget struct {
	Name      string  `json:"name"`
	TargetPct float64 `json:"target_pct"`
}

// RegisterRoutes registers all allocation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/allocation", func(r chi.Router) {
		r.Get("/targets", h.HandleGetTargets)
		r.Post("/targets/normalize", h.HandleNormalizeTargets)
	})
}

// HandleGetTargets handles GET /api/allocation/targets
func (h *Handler) HandleGetTargets(w http.ResponseWriter, r *http.Request) {
	targets := h.provider.Targets()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"targets":              targets,
			"categories":           categoryTargets(targets),
			"weight_sum":           allocation.WeightSum(targets),
			"default_contribution": h.provider.DefaultContribution(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(targets),
		},
	})
}

// HandleNormalizeTargets handles POST /api/allocation/targets/normalize.
// It rescales the given weights to sum to 1 and reports the raw sum.
func (h *Handler) HandleNormalizeTargets(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	normalized, err := allocation.NormalizeWeights(req.Targets)
	if err != nil {
		var cfgErr *rebalancing.ConfigurationError
		if errors.As(err, &cfgErr) {
			h.log.Warn().Err(err).Msg("Target weights rejected")
			h.writeError(w, http.StatusBadRequest, "CONFIGURATION_ERROR", cfgErr.Reason)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"targets":        normalized,
			"categories":     categoryTargets(normalized),
			"raw_weight_sum": allocation.WeightSum(req.Targets),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// categoryTargets sums target weights per category in first-seen order
func categoryTargets(targets []rebalancing.AssetTarget) []categoryTarget {
	result := make([]categoryTarget, 0)
	index := make(map[string]int)
	for _, t := range targets {
		name := t.Category
		if name == "" {
			name = allocation.Uncategorized
		}
		i, ok := index[name]
		if !ok {
			i = len(result)
			index[name] = i
			result = append(result, categoryTarget{Name: name})
		}
		result[i].TargetPct += t.TargetWeight
	}
	return result
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"code":    code,
		},
	})
}
