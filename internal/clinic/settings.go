// Package clinic holds clinic-wide operational settings: the nightly
// quiet-hours window for broadcasts and the reservation page URL.
package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInvalidWindow is returned when a quiet-hours bound is not a
	// 24-hour "HH:MM" string.
	ErrInvalidWindow = errors.New("clinic: quiet-hours bound must be HH:MM")

	// ErrStoreNotConfigured is returned on writes when redis is absent.
	ErrStoreNotConfigured = errors.New("clinic: settings store not configured")
)

// DefaultTimezone is the clinic's local timezone.
const DefaultTimezone = "Asia/Tokyo"

// Settings holds the operational knobs staff can change at runtime.
type Settings struct {
	// QuietHoursEnabled blocks broadcast sends inside the nightly window.
	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start"` // "21:00" in 24-hour format
	QuietHoursEnd     string `json:"quiet_hours_end"`   // "09:00" in 24-hour format
	Timezone          string `json:"timezone"`
	ReservationURL    string `json:"reservation_url,omitempty"`
}

// DefaultSettings returns the settings used when nothing has been saved.
func DefaultSettings() *Settings {
	return &Settings{
		QuietHoursEnabled: true,
		QuietHoursStart:   "21:00",
		QuietHoursEnd:     "09:00",
		Timezone:          DefaultTimezone,
	}
}

// InQuietHours reports whether t falls inside the quiet-hours window in the
// clinic's local time. Windows that cross midnight are handled.
func (s *Settings) InQuietHours(t time.Time) bool {
	if s == nil || !s.QuietHoursEnabled {
		return false
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)

	start, err := time.Parse("15:04", s.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", s.QuietHoursEnd)
	if err != nil {
		return false
	}

	current := local.Hour()*60 + local.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	if startMin <= endMin {
		return current >= startMin && current < endMin
	}
	// Overnight window, e.g. 21:00 to 09:00.
	return current >= startMin || current < endMin
}

const settingsKey = "clinic:settings"

// Store persists Settings in redis. A nil Store (redis not configured)
// always serves defaults and silently drops writes at the call site.
type Store struct {
	redis *redis.Client
}

// NewStore creates a settings store over the given redis client.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

// Get retrieves the saved settings, falling back to defaults when nothing
// has been stored or redis is absent.
func (s *Store) Get(ctx context.Context) (*Settings, error) {
	if s == nil || s.redis == nil {
		return DefaultSettings(), nil
	}
	data, err := s.redis.Get(ctx, settingsKey).Bytes()
	if err == redis.Nil {
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get settings: %w", err)
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("clinic: unmarshal settings: %w", err)
	}
	if settings.Timezone == "" {
		settings.Timezone = DefaultTimezone
	}
	return &settings, nil
}

// Set saves the settings.
func (s *Store) Set(ctx context.Context, settings *Settings) error {
	if s == nil || s.redis == nil {
		return ErrStoreNotConfigured
	}
	if _, err := time.Parse("15:04", settings.QuietHoursStart); err != nil {
		return fmt.Errorf("%w: start %q", ErrInvalidWindow, settings.QuietHoursStart)
	}
	if _, err := time.Parse("15:04", settings.QuietHoursEnd); err != nil {
		return fmt.Errorf("%w: end %q", ErrInvalidWindow, settings.QuietHoursEnd)
	}
	if settings.Timezone == "" {
		settings.Timezone = DefaultTimezone
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("clinic: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("clinic: set settings: %w", err)
	}
	return nil
}
