package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	AuditDSN      string
	RedisAddr     string
	RedisPassword string

	// Admin session auth. AdminUser/AdminPassword are the legacy shared
	// credentials used when no staff row matches.
	AuthSecret    string
	AdminUser     string
	AdminPassword string
	SessionTTL    time.Duration

	// AdminAPITokenSecret enables bearer-JWT access for machine clients.
	AdminAPITokenSecret string

	// LINE Messaging API. Either a long-lived channel access token, or a
	// channel id/secret pair for the client-credentials exchange.
	LINEChannelAccessToken string
	LINEChannelID          string
	LINEChannelSecret      string
	LINEBaseURL            string

	BroadcastSendDelay time.Duration
	LoginRateLimit     float64
	LoginRateBurst     int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		AuditDSN:      getEnv("AUDIT_DATABASE_URL", getEnv("DATABASE_URL", "")),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AuthSecret:    getEnv("AUTH_SECRET", "dev-secret-change-in-production"),
		AdminUser:     getEnv("ADMIN_USER", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "1234"),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),

		AdminAPITokenSecret: getEnv("ADMIN_API_TOKEN_SECRET", ""),

		LINEChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LINEChannelID:          getEnv("LINE_CHANNEL_ID", ""),
		LINEChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		LINEBaseURL:            getEnv("LINE_API_BASE_URL", ""),

		BroadcastSendDelay: getEnvAsDuration("BROADCAST_SEND_DELAY", 50*time.Millisecond),
		LoginRateLimit:     getEnvAsFloat("LOGIN_RATE_LIMIT", 1),
		LoginRateBurst:     getEnvAsInt("LOGIN_RATE_BURST", 5),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
