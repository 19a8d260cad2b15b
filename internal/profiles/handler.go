package profiles

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wakabadc/clinic-line-admin/internal/auth"
	"github.com/wakabadc/clinic-line-admin/internal/audit"
	"github.com/wakabadc/clinic-line-admin/internal/observability/metrics"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Handler handles HTTP requests for patient profiles.
type Handler struct {
	repo     Repository
	activity *audit.ActivityLogger
	metrics  *metrics.DashboardMetrics
	logger   *logging.Logger
}

// NewHandler creates a profiles handler.
func NewHandler(repo Repository, activity *audit.ActivityLogger, m *metrics.DashboardMetrics, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, activity: activity, metrics: m, logger: logger}
}

// List handles GET /api/profiles.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list profiles", "error", err)
		http.Error(w, "failed to list profiles", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/profiles/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Patch handles PATCH /api/profiles/{id}.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	p, err := h.repo.Update(r.Context(), id, update)
	if err != nil {
		h.respondError(w, err, "failed to update profile")
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "profile", id,
		audit.ProfileUpdateDetail{Fields: editedFields(update)})
	writeJSON(w, http.StatusOK, p)
}

// StampDeltaRequest is the body for POST /api/profiles/{id}/stamps.
type StampDeltaRequest struct {
	Delta int `json:"delta"`
}

// StampDelta handles POST /api/profiles/{id}/stamps. The delta is applied
// in one database round trip, clamped to the 0..999 range.
func (h *Handler) StampDelta(w http.ResponseWriter, r *http.Request) {
	var req StampDeltaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Delta == 0 {
		http.Error(w, ErrInvalidDelta.Error(), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	p, err := h.repo.AdjustStampCount(r.Context(), id, req.Delta)
	if err != nil {
		h.respondError(w, err, "failed to adjust stamp count")
		return
	}

	h.metrics.ObserveStampMutation("increment")
	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "profile", id,
		audit.StampIncrementDetail{Delta: req.Delta, NewCount: p.StampCount})
	writeJSON(w, http.StatusOK, p)
}

// StampSetRequest is the body for PUT /api/profiles/{id}/stamps.
type StampSetRequest struct {
	StampCount int `json:"stamp_count"`
}

// StampSet handles PUT /api/profiles/{id}/stamps.
func (h *Handler) StampSet(w http.ResponseWriter, r *http.Request) {
	var req StampSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	p, err := h.repo.SetStampCount(r.Context(), id, req.StampCount)
	if err != nil {
		h.respondError(w, err, "failed to set stamp count")
		return
	}

	h.metrics.ObserveStampMutation("set")
	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "profile", id,
		audit.StampSetDetail{NewCount: p.StampCount})
	writeJSON(w, http.StatusOK, p)
}

// NextVisit handles PUT /api/profiles/{id}/next-visit.
func (h *Handler) NextVisit(w http.ResponseWriter, r *http.Request) {
	var update NextVisitUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	p, err := h.repo.UpdateNextVisit(r.Context(), id, update)
	if err != nil {
		h.respondError(w, err, "failed to update next visit memo")
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "profile", id,
		audit.MemoUpdateDetail{HasDate: p.NextVisitDate != nil, HasMemo: p.NextVisitMemo != nil})
	writeJSON(w, http.StatusOK, p)
}

// ReservationClick handles POST /api/users/{id}/reservation-click. Called by
// the LIFF app, not the dashboard, so it sits outside the session-auth group.
func (h *Handler) ReservationClick(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}
	if err := h.repo.IncrementReservationClicks(r.Context(), id); err != nil {
		h.respondError(w, err, "failed to count reservation click")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidStampCount),
		errors.Is(err, ErrInvalidDelta),
		errors.Is(err, ErrMemoTooLong),
		errors.Is(err, ErrInvalidViewMode),
		errors.Is(err, ErrInvalidVisitDate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(fallback, "error", err)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func editedFields(update Update) []string {
	var fields []string
	if update.DisplayName != nil {
		fields = append(fields, "display_name")
	}
	if update.RealName != nil {
		fields = append(fields, "real_name")
	}
	if update.TicketNumber != nil {
		fields = append(fields, "ticket_number")
	}
	if update.LastVisitDate != nil {
		fields = append(fields, "last_visit_date")
	}
	if update.ViewMode != nil {
		fields = append(fields, "view_mode")
	}
	return fields
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
