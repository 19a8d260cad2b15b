package audit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Handler serves read-only audit endpoints for the admin UI.
type Handler struct {
	activity *ActivityLogger
	events   *EventLogReader
	logger   *logging.Logger
}

// NewHandler creates an audit handler.
func NewHandler(activity *ActivityLogger, events *EventLogReader, logger *logging.Logger) *Handler {
	return &Handler{activity: activity, events: events, logger: logger}
}

// ListActivityLogs handles GET /api/activity-logs.
func (h *Handler) ListActivityLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	entries, err := h.activity.ListActivity(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list activity logs", "error", err)
		http.Error(w, "failed to list activity logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":   entries,
		"count":  len(entries),
		"limit":  limit,
		"offset": offset,
	})
}

// ListEventLogs handles GET /api/event-logs.
func (h *Handler) ListEventLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	entries, err := h.events.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list event logs", "error", err)
		http.Error(w, "failed to list event logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":   entries,
		"count":  len(entries),
		"limit":  limit,
		"offset": offset,
	})
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = 100
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
