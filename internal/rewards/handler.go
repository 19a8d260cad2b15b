package rewards

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wakabadc/clinic-line-admin/internal/audit"
	"github.com/wakabadc/clinic-line-admin/internal/auth"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Handler handles HTTP requests for reward exchanges.
type Handler struct {
	service  *Service
	activity *audit.ActivityLogger
	logger   *logging.Logger
}

// NewHandler creates a reward exchange handler.
func NewHandler(service *Service, activity *audit.ActivityLogger, logger *logging.Logger) *Handler {
	return &Handler{service: service, activity: activity, logger: logger}
}

// List handles GET /api/reward-exchanges.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := ListQuery{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	if q.Status != "" && !ValidStatus(q.Status) {
		q.Status = ""
	}
	exchanges, err := h.service.List(r.Context(), q)
	if err != nil {
		h.logger.Error("failed to list reward exchanges", "error", err)
		http.Error(w, "failed to list reward exchanges", http.StatusInternalServerError)
		return
	}
	if exchanges == nil {
		exchanges = []WithDetails{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exchanges": exchanges})
}

// CompleteRequest is the body for POST /api/reward-exchanges/{id}/complete.
type CompleteRequest struct {
	CompletedBy string `json:"completedBy"`
}

// Complete handles POST /api/reward-exchanges/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	e, err := h.service.Complete(r.Context(), id, req.CompletedBy)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "reward_exchange", id,
		audit.RewardActionDetail{Kind: audit.ActionRewardComplete, CompletedBy: req.CompletedBy})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": e})
}

// CancelRequest is the body for POST /api/reward-exchanges/{id}/cancel.
type CancelRequest struct {
	Notes *string `json:"notes"`
}

// Cancel handles POST /api/reward-exchanges/{id}/cancel. Stamps consumed
// by the exchange are not refunded.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.service.Cancel(r.Context(), id, req.Notes); err != nil {
		h.respondError(w, err)
		return
	}

	notes := ""
	if req.Notes != nil {
		notes = *req.Notes
	}
	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "reward_exchange", id,
		audit.RewardActionDetail{Kind: audit.ActionRewardCancel, Notes: notes})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Delete handles DELETE /api/reward-exchanges/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "reward_exchange", id,
		audit.RewardActionDetail{Kind: audit.ActionRewardDelete})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrExchangeNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrCompleterRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotPending),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrNotTerminal):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("reward exchange operation failed", "error", err)
		http.Error(w, "reward exchange operation failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
