package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wakabadc/clinic-line-admin/internal/audit"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Handler serves the admin session endpoints.
type Handler struct {
	service      *Service
	codec        *TokenCodec
	activity     *audit.ActivityLogger
	logger       *logging.Logger
	secureCookie bool
}

// NewHandler creates an auth handler. secureCookie should be true in
// production so the cookie is HTTPS-only.
func NewHandler(service *Service, codec *TokenCodec, activity *audit.ActivityLogger, logger *logging.Logger, secureCookie bool) *Handler {
	return &Handler{
		service:      service,
		codec:        codec,
		activity:     activity,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	token, staff, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrStaffInactive):
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
		default:
			h.logger.Error("login failed", "error", err)
			http.Error(w, "login failed", http.StatusInternalServerError)
		}
		return
	}

	http.SetCookie(w, h.sessionCookie(token, int(h.codec.TTL().Seconds())))

	staffID := ""
	if staff != nil {
		staffID = staff.ID
	}
	h.activity.Record(r.Context(), staffID, "", "", audit.LoginDetail{
		Username: req.Username,
		Legacy:   staff == nil,
	})

	resp := map[string]any{"success": true}
	if staff != nil {
		resp["staff"] = staff
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	h.activity.Record(r.Context(), StaffIDFromContext(r.Context()), "", "", audit.LogoutDetail{})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	staff, err := h.service.Me(r.Context(), session)
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			http.Error(w, "staff not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to resolve session", "error", err)
		http.Error(w, "failed to resolve session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"legacy": staff == nil,
		"staff":  staff,
	})
}

// ChangePassword handles POST /api/auth/change-password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if session.IsLegacy() {
		http.Error(w, "the shared login has no stored password", http.StatusBadRequest)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.service.ChangePassword(r.Context(), session.StaffID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrWeakPassword):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrInvalidCredentials):
			http.Error(w, "current password is incorrect", http.StatusUnauthorized)
		case errors.Is(err, ErrStaffNotFound):
			http.Error(w, "staff not found", http.StatusNotFound)
		default:
			h.logger.Error("password change failed", "error", err)
			http.Error(w, "password change failed", http.StatusInternalServerError)
		}
		return
	}

	h.activity.Record(r.Context(), session.StaffID, "staff", session.StaffID, audit.PasswordChangeDetail{})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
