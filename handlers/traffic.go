package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iqra-23/intrusion-backend/repository"
)

type TrafficHandler struct {
	events *repository.TrafficEventRepository
	logger zerolog.Logger
}

func NewTrafficHandler(events *repository.TrafficEventRepository, logger zerolog.Logger) *TrafficHandler {
	return &TrafficHandler{
		events: events,
		logger: logger.With().Str("component", "traffic-handler").Logger(),
	}
}

func (h *TrafficHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.TrafficFilter{
		Search:     q.Get("search"),
		IP:         q.Get("ip"),
		Country:    q.Get("country"),
		Method:     q.Get("method"),
		Path:       q.Get("path"),
		Status:     atoiDefault(q.Get("status"), 0),
		SpikeOnly:  q.Get("spike") == "true",
		MinAnomaly: atoiDefault(q.Get("minAnomaly"), 0),
		Page:       atoiDefault(q.Get("page"), 1),
		Limit:      atoiDefault(q.Get("limit"), 50),
	}

	events, total, err := h.events.List(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("traffic list failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch traffic events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":     events,
		"pagination": pagination(total, filter.Page, filter.Limit),
	})
}

func (h *TrafficHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.events.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("traffic stats failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch traffic stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// RecentSpikes serves the in-app spike notification feed: spike-flagged
// events from the last 15 minutes.
func (h *TrafficHandler) RecentSpikes(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.RecentSpikes(r.Context(), time.Now().Add(-15*time.Minute), 20)
	if err != nil {
		h.logger.Error().Err(err).Msg("recent spikes failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch traffic alerts")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *TrafficHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []uuid.UUID `json:"ids"`
	}
	// An empty or absent body means "delete everything".
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	n, err := h.events.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		h.logger.Error().Err(err).Msg("traffic delete failed")
		writeError(w, http.StatusInternalServerError, "failed to delete traffic events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "traffic events deleted successfully",
		"deleted_count": n,
	})
}
