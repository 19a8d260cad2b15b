package broadcast

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wakabadc/clinic-line-admin/internal/audit"
	"github.com/wakabadc/clinic-line-admin/internal/auth"
	"github.com/wakabadc/clinic-line-admin/internal/line"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Handler handles HTTP requests for broadcast sends, previews, and logs.
type Handler struct {
	dispatcher *Dispatcher
	logs       LogRepository
	activity   *audit.ActivityLogger
	logger     *logging.Logger
}

// NewHandler creates a broadcast handler.
func NewHandler(dispatcher *Dispatcher, logs LogRepository, activity *audit.ActivityLogger, logger *logging.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, logs: logs, activity: activity, logger: logger}
}

// Send handles POST /api/broadcast/send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	staffID := auth.StaffIDFromContext(r.Context())
	result, err := h.dispatcher.Send(r.Context(), req, staffID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.activity.Record(r.Context(), staffID, "broadcast", result.LogID,
		audit.BroadcastSendDetail{
			TargetCount:  result.TargetCount,
			SuccessCount: result.SuccessCount,
			FailedCount:  result.FailedCount,
		})
	writeJSON(w, http.StatusOK, result)
}

// Preview handles POST /api/broadcast/preview. Works without LINE
// credentials since it never pushes.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	result, err := h.dispatcher.Preview(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListLogs handles GET /api/broadcast/logs.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 50, 200)
	logs, err := h.logs.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list broadcast logs", "error", err)
		http.Error(w, "failed to list broadcast logs", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []Log{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrRestrictedWindow):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, line.ErrNotConfigured):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.logger.Error("broadcast failed", "error", err)
		http.Error(w, "broadcast failed", http.StatusInternalServerError)
	}
}

func pageParams(r *http.Request, def, max int) (limit, offset int) {
	limit = def
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > max {
		limit = max
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
