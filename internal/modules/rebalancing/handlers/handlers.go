// Package handlers provides HTTP handlers for rebalancing operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/rebalancer/internal/modules/allocation"
	"github.com/aristath/rebalancer/internal/modules/holdings"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Error codes returned in the error envelope
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeConfiguration  = "CONFIGURATION_ERROR"
	CodeDataShape      = "DATA_SHAPE_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

const contentTypeMsgpack = "application/msgpack"

// Handler handles rebalancing HTTP requests
type Handler struct {
	service   *rebalancing.Service
	reader    *holdings.Reader
	maxUpload int64
	log       zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(
	service *rebalancing.Service,
	reader *holdings.Reader,
	maxUploadBytes int64,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:   service,
		reader:    reader,
		maxUpload: maxUploadBytes,
		log:       log.With().Str("handler", "rebalancing").Logger(),
	}
}

// PlanRequest represents a request to compute a contribution plan
type PlanRequest struct {
	Holdings     []rebalancing.RawHolding  `json:"holdings"`
	Targets      []rebalancing.AssetTarget `json:"targets,omitempty"`
	Contribution *float64                  `json:"contribution,omitempty"`
	// NormalizeWeights rescales request targets to sum to 1. Defaults to true.
	NormalizeWeights *bool `json:"normalize_weights,omitempty"`
}

// HandlePlan handles POST /api/rebalancing/plan
func (h *Handler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body", nil)
		return
	}

	opts := rebalancing.PlanOptions{Contribution: req.Contribution}
	if req.Targets != nil {
		opts.Targets = req.Targets
		if req.NormalizeWeights == nil || *req.NormalizeWeights {
			normalized, err := allocation.NormalizeWeights(req.Targets)
			if err != nil {
				h.handleError(w, r, err)
				return
			}
			opts.Targets = normalized
		}
	}

	h.plan(w, r, req.Holdings, opts)
}

// HandlePlanUpload handles POST /api/rebalancing/plan/upload.
// The holdings file arrives in the multipart field "file"; the optional form
// field "contribution" overrides the default contribution.
func (h *Handler) HandlePlanUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.log.Error().Err(err).Msg("Failed to parse multipart form")
		h.writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "Invalid multipart form", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "file is required", nil)
		return
	}
	defer file.Close()

	var opts rebalancing.PlanOptions
	if value := strings.TrimSpace(r.FormValue("contribution")); value != "" {
		contribution, ok := rebalancing.ParseNumber(value)
		if !ok {
			h.handleError(w, r, &rebalancing.ConfigurationError{Reason: "contribution must be a number"})
			return
		}
		opts.Contribution = &contribution
	}

	raw, err := h.reader.Read(file, header.Filename)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.log.Debug().
		Str("filename", header.Filename).
		Int64("size", header.Size).
		Int("rows", len(raw)).
		Msg("Holdings file uploaded")

	h.plan(w, r, raw, opts)
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request, raw []rebalancing.RawHolding, opts rebalancing.PlanOptions) {
	plan, err := h.service.Plan(raw, opts)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"contribution":    plan.Contribution,
			"table":           plan.Table.Rows,
			"columns":         plan.Table.Columns,
			"summary":         plan.Summary,
			"categories":      allocation.CalculateCategoryAllocation(plan.Table),
			"unmatched":       nonNil(plan.Table.Unmatched),
			"negative_values": nonNil(plan.Table.NegativeValues),
			"balanced":        plan.Balanced,
		},
		"metadata": h.metadata(r),
	}

	h.writeResponse(w, r, http.StatusOK, response)
}

func (h *Handler) metadata(r *http.Request) map[string]interface{} {
	return map[string]interface{}{
		"timestamp":  time.Now().Format(time.RFC3339),
		"request_id": middleware.GetReqID(r.Context()),
	}
}

// handleError maps rebalancer errors onto HTTP statuses
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var cfgErr *rebalancing.ConfigurationError
	var shapeErr *rebalancing.DataShapeError

	switch {
	case errors.As(err, &cfgErr):
		h.writeError(w, r, http.StatusBadRequest, CodeConfiguration, cfgErr.Reason, nil)
	case errors.As(err, &shapeErr):
		var details map[string]interface{}
		if shapeErr.Row > 0 {
			details = map[string]interface{}{"row": shapeErr.Row}
		}
		h.writeError(w, r, http.StatusUnprocessableEntity, CodeDataShape, err.Error(), details)
	default:
		h.log.Error().Err(err).Msg("Rebalancing request failed")
		h.writeError(w, r, http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	body := map[string]interface{}{
		"message": message,
		"code":    code,
	}
	if details != nil {
		body["details"] = details
	}
	h.writeResponse(w, r, status, map[string]interface{}{"error": body})
}

// writeResponse writes msgpack when the client asks for it, JSON otherwise
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack) {
		payload, err := msgpack.Marshal(data)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to encode msgpack response")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		if _, err := w.Write(payload); err != nil {
			h.log.Error().Err(err).Msg("Failed to write msgpack response")
		}
		return
	}

	h.writeJSON(w, status, data)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
