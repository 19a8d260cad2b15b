package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wakabadc/clinic-line-admin/internal/api/router"
	"github.com/wakabadc/clinic-line-admin/internal/audit"
	"github.com/wakabadc/clinic-line-admin/internal/auth"
	"github.com/wakabadc/clinic-line-admin/internal/broadcast"
	"github.com/wakabadc/clinic-line-admin/internal/clinic"
	appconfig "github.com/wakabadc/clinic-line-admin/internal/config"
	"github.com/wakabadc/clinic-line-admin/internal/family"
	"github.com/wakabadc/clinic-line-admin/internal/line"
	"github.com/wakabadc/clinic-line-admin/internal/observability/metrics"
	"github.com/wakabadc/clinic-line-admin/internal/profiles"
	"github.com/wakabadc/clinic-line-admin/internal/rewards"
	"github.com/wakabadc/clinic-line-admin/internal/surveys"
	"github.com/wakabadc/clinic-line-admin/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic admin API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Postgres. Without a DSN the server runs on in-memory stores, which
	// is enough for local UI work.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
	}

	// The audit trail writes through database/sql; a missing DSN disables
	// it without breaking the operations it attaches to.
	var auditDB *sql.DB
	if cfg.AuditDSN != "" {
		var err error
		auditDB, err = sql.Open("postgres", cfg.AuditDSN)
		if err != nil {
			logger.Error("failed to open audit db", "error", err)
			os.Exit(1)
		}
		defer func() { _ = auditDB.Close() }()
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = redisClient.Close() }()
	}

	// Repositories.
	var (
		profileRepo profiles.Repository
		familyRepo  family.Repository
		staffRepo   auth.StaffRepository
		logRepo     broadcast.LogRepository
		rewardRepo  rewards.Repository
		surveyRepo  surveys.Repository
	)
	if pool != nil {
		profileRepo = profiles.NewPostgresRepository(pool)
		familyRepo = family.NewPostgresRepository(pool)
		staffRepo = auth.NewPostgresStaffRepository(pool)
		logRepo = broadcast.NewPostgresLogRepository(pool)
		rewardRepo = rewards.NewPostgresRepository(pool)
		surveyRepo = surveys.NewPostgresRepository(pool)
	} else {
		profileRepo = profiles.NewInMemoryRepository()
		familyRepo = family.NewInMemoryRepository()
		staffRepo = auth.NewInMemoryStaffRepository()
		logRepo = broadcast.NewInMemoryLogRepository()
		rewardRepo = rewards.NewInMemoryRepository()
		surveyRepo = surveys.NewInMemoryRepository()
	}

	registry := prometheus.NewRegistry()
	dashboardMetrics := metrics.NewDashboardMetrics(registry)

	activity := audit.NewActivityLogger(auditDB, logger)
	events := audit.NewEventLogReader(auditDB)
	settingsStore := clinic.NewStore(redisClient)

	var pusher broadcast.Pusher
	lineClient, err := line.New(line.Config{
		BaseURL:            cfg.LINEBaseURL,
		ChannelAccessToken: cfg.LINEChannelAccessToken,
		ChannelID:          cfg.LINEChannelID,
		ChannelSecret:      cfg.LINEChannelSecret,
		Logger:             logger.Logger,
	})
	if err != nil {
		logger.Warn("LINE client not configured, broadcasts will be rejected", "error", err)
	} else {
		pusher = lineClient
	}

	codec := auth.NewTokenCodec(cfg.AuthSecret, cfg.SessionTTL)
	authService := auth.NewService(staffRepo, codec, cfg.AdminUser, cfg.AdminPassword)
	familyService := family.NewService(familyRepo, logger)
	rewardService := rewards.NewService(rewardRepo, logger)
	surveyService := surveys.NewService(surveyRepo, profileRepo, logger)
	dispatcher := broadcast.NewDispatcher(profileRepo, logRepo, pusher,
		settingsStore, dashboardMetrics, logger, cfg.BroadcastSendDelay)

	routerCfg := &router.Config{
		Logger:           logger,
		AuthHandler:      auth.NewHandler(authService, codec, activity, logger, cfg.Env == "production"),
		ProfilesHandler:  profiles.NewHandler(profileRepo, activity, dashboardMetrics, logger),
		FamilyHandler:    family.NewHandler(familyService, activity, logger),
		BroadcastHandler: broadcast.NewHandler(dispatcher, logRepo, activity, logger),
		RewardsHandler:   rewards.NewHandler(rewardService, activity, logger),
		SurveysHandler:   surveys.NewHandler(surveyService, activity, logger),
		ClinicHandler:    clinic.NewHandler(settingsStore, activity, logger),
		AuditHandler:     audit.NewHandler(activity, events, logger),

		SessionCodec:        codec,
		AdminAPITokenSecret: cfg.AdminAPITokenSecret,
		LoginRateLimit:      cfg.LoginRateLimit,
		LoginRateBurst:      cfg.LoginRateBurst,

		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
