package surveys

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wakabadc/clinic-line-admin/internal/audit"
	"github.com/wakabadc/clinic-line-admin/internal/auth"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Handler handles HTTP requests for survey administration.
type Handler struct {
	service  *Service
	activity *audit.ActivityLogger
	logger   *logging.Logger
}

// NewHandler creates a survey handler.
func NewHandler(service *Service, activity *audit.ActivityLogger, logger *logging.Logger) *Handler {
	return &Handler{service: service, activity: activity, logger: logger}
}

// List handles GET /api/surveys.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if list == nil {
		list = []WithStats{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"surveys": list})
}

// Get handles GET /api/surveys/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sv, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"survey": sv})
}

// Create handles POST /api/surveys.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sv, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"survey": sv})
}

// Update handles PATCH /api/surveys/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sv, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"survey": sv})
}

// Distribute handles POST /api/surveys/distribute.
func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req DistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	result, err := h.service.Distribute(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "survey", req.SurveyID,
		audit.SurveyDistributeDetail{
			SurveyID:       req.SurveyID,
			TargetType:     req.TargetType,
			TargetCount:    result.TargetCount,
			ShowOnLiffOpen: *req.ShowOnLiffOpen,
		})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "targetCount": result.TargetCount})
}

// Targets handles GET /api/surveys/{id}/targets.
func (h *Handler) Targets(w http.ResponseWriter, r *http.Request) {
	list, stats, err := h.service.Targets(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if list == nil {
		list = []TargetWithProfile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"targets": list, "stats": stats})
}

// ResetAnswerRequest is the body for POST /api/surveys/{id}/reset-answer.
type ResetAnswerRequest struct {
	UserID string `json:"userId"`
}

// ResetAnswer handles POST /api/surveys/{id}/reset-answer.
func (h *Handler) ResetAnswer(w http.ResponseWriter, r *http.Request) {
	var req ResetAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	surveyID := chi.URLParam(r, "id")
	if err := h.service.ResetAnswer(r.Context(), surveyID, req.UserID); err != nil {
		h.respondError(w, err)
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "survey", surveyID,
		audit.SurveyResetDetail{SurveyID: surveyID, UserID: req.UserID})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// LiffFlagRequest is the body for POST /api/surveys/{id}/liff-flag.
type LiffFlagRequest struct {
	ShowOnLiffOpen *bool `json:"showOnLiffOpen"`
}

// SetLiffFlag handles POST /api/surveys/{id}/liff-flag.
func (h *Handler) SetLiffFlag(w http.ResponseWriter, r *http.Request) {
	var req LiffFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ShowOnLiffOpen == nil {
		http.Error(w, "showOnLiffOpen is required", http.StatusBadRequest)
		return
	}

	surveyID := chi.URLParam(r, "id")
	count, err := h.service.SetLiffFlag(r.Context(), surveyID, *req.ShowOnLiffOpen)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "survey", surveyID,
		audit.SurveyLiffFlagDetail{SurveyID: surveyID, ShowOnLiffOpen: *req.ShowOnLiffOpen, UpdatedCount: count})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updatedCount": count})
}

// Results handles GET /api/surveys/{id}/results.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// ResultsCSV handles GET /api/surveys/{id}/results/csv.
func (h *Handler) ResultsCSV(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.service.ResultsCSV(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Candidates handles GET /api/surveys/candidates.
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Candidates(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": list})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSurveyNotFound), errors.Is(err, ErrTargetNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrSurveyIDRequired),
		errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrInvalidTargetType),
		errors.Is(err, ErrLiffFlagRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrDuplicateSurveyID), errors.Is(err, ErrAlreadyPending):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("survey operation failed", "error", err)
		http.Error(w, "survey operation failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
