package handlers

import (
	"errors"
	"net/http"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/internal/scoreweights"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// WeightsHandler exposes the shared score-weight configuration
type WeightsHandler struct {
	weights *scoreweights.Config
	logger  *logger.Logger
}

// NewWeightsHandler creates a new weights handler
func NewWeightsHandler(weights *scoreweights.Config, log *logger.Logger) *WeightsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WeightsHandler{weights: weights, logger: log}
}

// WeightsResponse describes the active weight generation
type WeightsResponse struct {
	Version   uint64                         `json:"version"`
	Hash      string                         `json:"hash"`
	Base      map[contracts.Category]float64 `json:"base"`
	Industry  string                         `json:"industry,omitempty"`
	Known     bool                           `json:"known_industry,omitempty"`
	Effective map[contracts.Category]float64 `json:"effective,omitempty"`
	Warnings  []scoreweights.Warning         `json:"warnings,omitempty"`
}

// GetWeights returns the base weights and, optionally, one industry's effective weights
// GET /api/weights?industry=semiconductor
func (h *WeightsHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	resp := h.snapshot()

	if industry := r.URL.Query().Get("industry"); industry != "" {
		resp.Industry = scoreweights.NormalizeIndustry(industry)
		resp.Known = scoreweights.KnownIndustry(industry)
		resp.Effective = h.weights.EffectiveWeights(industry)
	}

	respondJSON(w, http.StatusOK, resp)
}

// PutWeights replaces the configuration with a weight document (YAML or JSON)
// PUT /api/weights
func (h *WeightsHandler) PutWeights(w http.ResponseWriter, r *http.Request) {
	next, warnings, err := scoreweights.Parse(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var verr scoreweights.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, map[string]string{
				"error": verr.Message,
				"field": verr.Field,
			})
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.weights.ReplaceFrom(next)

	resp := h.snapshot()
	resp.Warnings = warnings

	h.logger.WithFields(map[string]interface{}{
		"version":  resp.Version,
		"hash":     resp.Hash,
		"warnings": len(warnings),
	}).Info("Score weights replaced")

	respondJSON(w, http.StatusOK, resp)
}

func (h *WeightsHandler) snapshot() WeightsResponse {
	return WeightsResponse{
		Version: h.weights.Version(),
		Hash:    h.weights.Hash(),
		Base:    h.weights.Weights(),
	}
}
