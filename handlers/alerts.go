package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iqra-23/intrusion-backend/models"
	"github.com/Iqra-23/intrusion-backend/repository"
)

type AlertHandler struct {
	alerts *repository.AlertRepository
	logger zerolog.Logger
}

func NewAlertHandler(alerts *repository.AlertRepository, logger zerolog.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		logger: logger.With().Str("component", "alert-handler").Logger(),
	}
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.AlertFilter{
		Severity: models.Severity(q.Get("severity")),
		Page:     atoiDefault(q.Get("page"), 1),
		Limit:    atoiDefault(q.Get("limit"), 50),
	}
	if v := q.Get("acknowledged"); v != "" {
		b := v == "true"
		filter.Acknowledged = &b
	}
	if v := q.Get("resolved"); v != "" {
		b := v == "true"
		filter.Resolved = &b
	}

	alerts, total, err := h.alerts.List(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("alert list failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":     alerts,
		"pagination": pagination(total, filter.Page, filter.Limit),
	})
}

func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uuid.UUID  `json:"id"`
		UserID *uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "alert id is required")
		return
	}

	if err := h.alerts.Acknowledge(r.Context(), req.ID, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		h.logger.Error().Err(err).Msg("alert acknowledge failed")
		writeError(w, http.StatusInternalServerError, "failed to acknowledge alert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "alert acknowledged"})
}

func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "alert id is required")
		return
	}

	if err := h.alerts.Resolve(r.Context(), req.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		h.logger.Error().Err(err).Msg("alert resolve failed")
		writeError(w, http.StatusInternalServerError, "failed to resolve alert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "alert resolved"})
}

func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "alert id is required")
		return
	}

	if err := h.alerts.Delete(r.Context(), req.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		h.logger.Error().Err(err).Msg("alert delete failed")
		writeError(w, http.StatusInternalServerError, "failed to delete alert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "alert deleted"})
}

func (h *AlertHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "intrusion-backend",
	})
}
