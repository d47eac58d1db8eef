// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aristath/turtle/internal/domain"
	"github.com/aristath/turtle/internal/modules/portfolio"
	"github.com/aristath/turtle/internal/modules/reconciliation"
	"github.com/aristath/turtle/internal/modules/risk"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies; bar history is the largest payload
const maxBodyBytes = 1 << 20

// Handler handles portfolio HTTP requests
type Handler struct {
	service  *portfolio.Service
	engine   *reconciliation.Engine
	sessions *reconciliation.SessionHolder
	log      zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(
	service *portfolio.Service,
	engine *reconciliation.Engine,
	sessions *reconciliation.SessionHolder,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		engine:   engine,
		sessions: sessions,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns the reconciled portfolio.
// Broker and store outages lower the tier but still answer 200.
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.ReconcileWithHolder(r.Context(), h.sessions, chi.URLParam(r, "accountId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res.View)
}

// HandleInit creates the account's portfolio if it is missing
func (h *Handler) HandleInit(w http.ResponseWriter, r *http.Request) {
	// the body is optional
	var opts portfolio.InitOptions
	if err := h.decode(w, r, &opts); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, created, err := h.service.Initialize(r.Context(), chi.URLParam(r, "accountId"), opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, map[string]interface{}{
		"success":   true,
		"created":   created,
		"portfolio": p,
	})
}

// upsertRequest is PositionUpdate plus the identifiers some clients repeat in the body
type upsertRequest struct {
	AccountID string `json:"accountId,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	domain.PositionUpdate
}

// HandleUpsertPosition inserts or updates one position
func (h *Handler) HandleUpsertPosition(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	symbol := chi.URLParam(r, "symbol")

	var req upsertRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AccountID != "" && req.AccountID != accountID {
		h.writeError(w, http.StatusBadRequest, "accountId in body does not match path")
		return
	}
	if req.Symbol != "" && req.Symbol != symbol {
		h.writeError(w, http.StatusBadRequest, "symbol in body does not match path")
		return
	}

	result, err := h.service.UpsertPosition(r.Context(), accountID, symbol, req.PositionUpdate)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"outcome":  result.Outcome,
		"position": result.Position,
	})
}

// HandleDeletePosition removes one position
func (h *Handler) HandleDeletePosition(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.RemovePosition(r.Context(), chi.URLParam(r, "accountId"), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"removed": removed,
	})
}

// HandleAddFill adds shares to an existing position
func (h *Handler) HandleAddFill(w http.ResponseWriter, r *http.Request) {
	var fill portfolio.Fill
	if err := h.decode(w, r, &fill); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pos, err := h.service.AddFill(r.Context(), chi.URLParam(r, "accountId"), chi.URLParam(r, "symbol"), fill)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"position": pos,
	})
}

// HandleUpdateRiskSettings replaces the account's risk settings
func (h *Handler) HandleUpdateRiskSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.RiskSettings
	if err := h.decode(w, r, &settings); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.service.UpdateRiskSettings(r.Context(), chi.URLParam(r, "accountId"), settings)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"riskSettings": p.RiskSettings,
	})
}

// HandleEntryPlan sizes a breakout entry for the account
func (h *Handler) HandleEntryPlan(w http.ResponseWriter, r *http.Request) {
	var req risk.EntryRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.service.PlanEntry(r.Context(), chi.URLParam(r, "accountId"), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// HandleGetRisk returns exposure and limit status of the stored ledger
func (h *Handler) HandleGetRisk(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RiskStatus(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// decode reads a JSON body, rejecting fields the target does not declare
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case domain.IsValidation(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{"success": false, "error": message})
}
