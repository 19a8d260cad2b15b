package clinic

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wakabadc/clinic-line-admin/internal/audit"
	"github.com/wakabadc/clinic-line-admin/internal/auth"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Handler handles HTTP requests for clinic settings.
type Handler struct {
	store    *Store
	activity *audit.ActivityLogger
	logger   *logging.Logger
}

// NewHandler creates a clinic settings handler.
func NewHandler(store *Store, activity *audit.ActivityLogger, logger *logging.Logger) *Handler {
	return &Handler{store: store, activity: activity, logger: logger}
}

// Get handles GET /api/clinic/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load clinic settings", "error", err)
		http.Error(w, "failed to load clinic settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// Update handles PUT /api/clinic/settings.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.store.Set(r.Context(), &settings); err != nil {
		switch {
		case errors.Is(err, ErrInvalidWindow):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrStoreNotConfigured):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			h.logger.Error("failed to save clinic settings", "error", err)
			http.Error(w, "failed to save clinic settings", http.StatusInternalServerError)
		}
		return
	}

	h.activity.Record(r.Context(), auth.StaffIDFromContext(r.Context()), "clinic_settings", "",
		audit.ClinicSettingsDetail{
			QuietHoursEnabled: settings.QuietHoursEnabled,
			QuietHoursStart:   settings.QuietHoursStart,
			QuietHoursEnd:     settings.QuietHoursEnd,
			Timezone:          settings.Timezone,
		})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "settings": settings})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
