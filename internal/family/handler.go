package family

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wakabadc/clinic-line-admin/internal/auth"
	"github.com/wakabadc/clinic-line-admin/internal/audit"
	"github.com/wakabadc/clinic-line-admin/internal/profiles"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Handler handles HTTP requests for family management.
type Handler struct {
	service  *Service
	activity *audit.ActivityLogger
	logger   *logging.Logger
}

// NewHandler creates a family handler.
func NewHandler(service *Service, activity *audit.ActivityLogger, logger *logging.Logger) *Handler {
	return &Handler{service: service, activity: activity, logger: logger}
}

// List handles GET /api/families.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list families", "error", err)
		http.Error(w, "failed to list families", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Get handles GET /api/families/{familyID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), chi.URLParam(r, "familyID"))
	if err != nil {
		h.respondError(w, err, "failed to load family")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Create handles POST /api/families.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, err, "failed to create family")
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "family", created.ID,
		audit.FamilyChangeDetail{Kind: audit.ActionFamilyCreate, FamilyName: created.Name})
	writeJSON(w, http.StatusCreated, created)
}

// RenameRequest is the body for PATCH /api/families/{familyID}.
type RenameRequest struct {
	Name string `json:"family_name"`
}

// Rename handles PATCH /api/families/{familyID}.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	familyID := chi.URLParam(r, "familyID")
	renamed, err := h.service.Rename(r.Context(), familyID, req.Name)
	if err != nil {
		h.respondError(w, err, "failed to rename family")
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "family", familyID,
		audit.FamilyChangeDetail{Kind: audit.ActionFamilyUpdate, FamilyName: req.Name})
	writeJSON(w, http.StatusOK, renamed)
}

// Dissolve handles DELETE /api/families/{familyID}.
func (h *Handler) Dissolve(w http.ResponseWriter, r *http.Request) {
	familyID := chi.URLParam(r, "familyID")
	result, err := h.service.Dissolve(r.Context(), familyID)
	if err != nil {
		h.respondError(w, err, "failed to dissolve family")
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "family", familyID,
		audit.FamilyChangeDetail{Kind: audit.ActionFamilyDelete})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

// AddMemberRequest is the body for POST /api/families/{familyID}/members.
type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

// AddMember handles POST /api/families/{familyID}/members.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	familyID := chi.URLParam(r, "familyID")
	member, err := h.service.AddMember(r.Context(), familyID, req.UserID)
	if err != nil {
		h.respondError(w, err, "failed to add member")
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "family", familyID,
		audit.FamilyChangeDetail{Kind: audit.ActionFamilyMemberAdd, UserID: req.UserID})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "member": member})
}

// RemoveMember handles DELETE /api/families/{familyID}/members/{userID}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	familyID := chi.URLParam(r, "familyID")
	userID := chi.URLParam(r, "userID")

	newFamily, err := h.service.RemoveMember(r.Context(), familyID, userID)
	if err != nil {
		h.respondError(w, err, "failed to remove member")
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "family", familyID,
		audit.FamilyChangeDetail{Kind: audit.ActionFamilyMemberRemove, UserID: userID})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "new_family_id": newFamily.ID})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrFamilyNotFound), errors.Is(err, profiles.ErrProfileNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrRepresentativeRequired),
		errors.Is(err, ErrMemberIDsRequired),
		errors.Is(err, ErrRepresentativeNotMember),
		errors.Is(err, ErrNotInFamily):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrAlreadyInFamily),
		errors.Is(err, ErrAlreadySingle),
		errors.Is(err, ErrParentNotRemovable),
		errors.Is(err, ErrNoMembers):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error(fallback, "error", err)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
