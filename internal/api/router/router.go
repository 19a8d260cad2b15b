package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/wakabadc/clinic-line-admin/internal/audit"
	"github.com/wakabadc/clinic-line-admin/internal/auth"
	"github.com/wakabadc/clinic-line-admin/internal/broadcast"
	"github.com/wakabadc/clinic-line-admin/internal/clinic"
	"github.com/wakabadc/clinic-line-admin/internal/family"
	httpmiddleware "github.com/wakabadc/clinic-line-admin/internal/http/middleware"
	"github.com/wakabadc/clinic-line-admin/internal/profiles"
	"github.com/wakabadc/clinic-line-admin/internal/rewards"
	"github.com/wakabadc/clinic-line-admin/internal/surveys"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	AuthHandler      *auth.Handler
	ProfilesHandler  *profiles.Handler
	FamilyHandler    *family.Handler
	BroadcastHandler *broadcast.Handler
	RewardsHandler   *rewards.Handler
	SurveysHandler   *surveys.Handler
	ClinicHandler    *clinic.Handler
	AuditHandler     *audit.Handler

	SessionCodec        *auth.TokenCodec
	AdminAPITokenSecret string

	LoginRateLimit float64
	LoginRateBurst int

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: health, metrics, login, and the patient-facing
	// LIFF surface.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		loginLimit := cfg.LoginRateLimit
		if loginLimit <= 0 {
			loginLimit = 1
		}
		loginBurst := cfg.LoginRateBurst
		if loginBurst <= 0 {
			loginBurst = 5
		}
		public.With(httpmiddleware.RateLimit(loginLimit, loginBurst)).
			Post("/api/auth/login", cfg.AuthHandler.Login)

		public.Post("/api/users/{id}/reservation-click", cfg.ProfilesHandler.ReservationClick)

		public.Route("/api/liff/surveys", func(liff chi.Router) {
			liff.Get("/", cfg.SurveysHandler.Pending)
			liff.Post("/{id}/answers", cfg.SurveysHandler.SubmitAnswer)
			liff.Post("/{id}/postpone", cfg.SurveysHandler.Postpone)
		})
	})

	// Admin endpoints behind the session cookie (or machine bearer token).
	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.SessionAuth(cfg.SessionCodec, cfg.AdminAPITokenSecret))

		admin.Route("/api/auth", func(r chi.Router) {
			r.Post("/logout", cfg.AuthHandler.Logout)
			r.Get("/me", cfg.AuthHandler.Me)
			r.Post("/change-password", cfg.AuthHandler.ChangePassword)
		})

		admin.Route("/api/profiles", func(r chi.Router) {
			r.Get("/", cfg.ProfilesHandler.List)
			r.Get("/{id}", cfg.ProfilesHandler.Get)
			r.Patch("/{id}", cfg.ProfilesHandler.Patch)
			r.Post("/{id}/stamps", cfg.ProfilesHandler.StampDelta)
			r.Put("/{id}/stamps", cfg.ProfilesHandler.StampSet)
			r.Put("/{id}/next-visit", cfg.ProfilesHandler.NextVisit)
		})

		admin.Route("/api/families", func(r chi.Router) {
			r.Get("/", cfg.FamilyHandler.List)
			r.Post("/", cfg.FamilyHandler.Create)
			r.Get("/{familyID}", cfg.FamilyHandler.Get)
			r.Patch("/{familyID}", cfg.FamilyHandler.Rename)
			r.Delete("/{familyID}", cfg.FamilyHandler.Dissolve)
			r.Post("/{familyID}/members", cfg.FamilyHandler.AddMember)
			r.Delete("/{familyID}/members/{userID}", cfg.FamilyHandler.RemoveMember)
		})

		admin.Route("/api/broadcast", func(r chi.Router) {
			r.Post("/send", cfg.BroadcastHandler.Send)
			r.Post("/preview", cfg.BroadcastHandler.Preview)
			r.Get("/logs", cfg.BroadcastHandler.ListLogs)
		})

		admin.Route("/api/reward-exchanges", func(r chi.Router) {
			r.Get("/", cfg.RewardsHandler.List)
			r.Post("/{id}/complete", cfg.RewardsHandler.Complete)
			r.Post("/{id}/cancel", cfg.RewardsHandler.Cancel)
			r.Delete("/{id}", cfg.RewardsHandler.Delete)
		})

		admin.Route("/api/surveys", func(r chi.Router) {
			r.Get("/", cfg.SurveysHandler.List)
			r.Post("/", cfg.SurveysHandler.Create)
			r.Post("/distribute", cfg.SurveysHandler.Distribute)
			r.Get("/candidates", cfg.SurveysHandler.Candidates)
			r.Get("/{id}", cfg.SurveysHandler.Get)
			r.Patch("/{id}", cfg.SurveysHandler.Update)
			r.Get("/{id}/targets", cfg.SurveysHandler.Targets)
			r.Post("/{id}/reset-answer", cfg.SurveysHandler.ResetAnswer)
			r.Post("/{id}/liff-flag", cfg.SurveysHandler.SetLiffFlag)
			r.Get("/{id}/results", cfg.SurveysHandler.Results)
			r.Get("/{id}/results/csv", cfg.SurveysHandler.ResultsCSV)
		})

		admin.Route("/api/clinic/settings", func(r chi.Router) {
			r.Get("/", cfg.ClinicHandler.Get)
			r.Put("/", cfg.ClinicHandler.Update)
		})

		admin.Get("/api/activity-logs", cfg.AuditHandler.ListActivityLogs)
		admin.Get("/api/event-logs", cfg.AuditHandler.ListEventLogs)
	})

	return r
}
