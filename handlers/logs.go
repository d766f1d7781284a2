package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iqra-23/intrusion-backend/classifier"
	"github.com/Iqra-23/intrusion-backend/models"
	"github.com/Iqra-23/intrusion-backend/repository"
	"github.com/Iqra-23/intrusion-backend/traffic"
)

type LogHandler struct {
	logs       *repository.LogRepository
	classifier *classifier.Classifier
	logger     zerolog.Logger
}

func NewLogHandler(logs *repository.LogRepository, cls *classifier.Classifier, logger zerolog.Logger) *LogHandler {
	return &LogHandler{
		logs:       logs,
		classifier: cls,
		logger:     logger.With().Str("component", "log-handler").Logger(),
	}
}

type createLogRequest struct {
	Level      string   `json:"level"`
	Message    string   `json:"message"`
	Keywords   []string `json:"keywords"`
	IPAddress  string   `json:"ip_address"`
	UserAgent  string   `json:"user_agent"`
	URL        string   `json:"url"`
	Method     string   `json:"method"`
	StatusCode int      `json:"status_code"`
	// NotifyEmail overrides the configured admin recipient for any alert
	// raised from this log.
	NotifyEmail string `json:"notify_email"`
}

// Create ingests a log record and runs suspicious-activity classification on
// it. The alert (if any) is returned alongside the log.
func (h *LogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	level := models.LogLevel(req.Level)
	if !level.Valid() {
		writeError(w, http.StatusBadRequest, "invalid level")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	rec := &models.LogRecord{
		Level:      level,
		Message:    req.Message,
		Keywords:   req.Keywords,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		URL:        req.URL,
		Method:     req.Method,
		StatusCode: req.StatusCode,
	}
	if rec.IPAddress == "" {
		rec.IPAddress = traffic.ClientIP(r)
	}

	if err := h.logs.Create(r.Context(), rec); err != nil {
		h.logger.Error().Err(err).Msg("log create failed")
		writeError(w, http.StatusInternalServerError, "failed to create log")
		return
	}

	alert := h.classifier.Classify(r.Context(), rec, req.NotifyEmail)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"log":   rec,
		"alert": alert,
	})
}

func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.LogFilter{
		Search:   q.Get("q"),
		Archived: q.Get("archived") == "true",
		Page:     atoiDefault(q.Get("page"), 1),
		Limit:    atoiDefault(q.Get("limit"), 50),
	}
	if lvl := q.Get("level"); lvl != "" && lvl != "all" {
		filter.Level = models.LogLevel(lvl)
	}

	logs, total, err := h.logs.List(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("log list failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":       logs,
		"pagination": pagination(total, filter.Page, filter.Limit),
	})
}

func (h *LogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.logs.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("log stats failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *LogHandler) Archive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no logs specified")
		return
	}

	n, err := h.logs.Archive(r.Context(), req.IDs)
	if err != nil {
		h.logger.Error().Err(err).Msg("log archive failed")
		writeError(w, http.StatusInternalServerError, "failed to archive logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"archived": n})
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func pagination(total int64, page, limit int) map[string]interface{} {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return map[string]interface{}{
		"total": total,
		"page":  page,
		"pages": pages,
		"limit": limit,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
