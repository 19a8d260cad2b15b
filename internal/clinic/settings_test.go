package clinic

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestGetReturnsDefaultsWhenUnset(t *testing.T) {
	store := newTestStore(t)
	settings, err := store.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !settings.QuietHoursEnabled || settings.QuietHoursStart != "21:00" || settings.QuietHoursEnd != "09:00" {
		t.Errorf("unexpected defaults: %+v", settings)
	}
	if settings.Timezone != DefaultTimezone {
		t.Errorf("expected %s, got %s", DefaultTimezone, settings.Timezone)
	}
}

func TestNilStoreServesDefaults(t *testing.T) {
	var store *Store
	settings, err := store.Get(context.Background())
	if err != nil {
		t.Fatalf("get on nil store: %v", err)
	}
	if !settings.QuietHoursEnabled {
		t.Error("nil store must serve defaults")
	}
}

func TestSetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	in := &Settings{
		QuietHoursEnabled: false,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "08:00",
		ReservationURL:    "https://example.com/reserve",
	}
	if err := store.Set(ctx, in); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.QuietHoursEnabled || out.QuietHoursStart != "22:00" || out.ReservationURL != "https://example.com/reserve" {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.Timezone != DefaultTimezone {
		t.Errorf("blank timezone must default, got %s", out.Timezone)
	}
}

func TestSetRejectsMalformedWindow(t *testing.T) {
	store := newTestStore(t)
	if err := store.Set(context.Background(), &Settings{QuietHoursStart: "9pm", QuietHoursEnd: "09:00"}); err == nil {
		t.Error("malformed start must be rejected")
	}
}

func TestInQuietHoursOvernightWindow(t *testing.T) {
	settings := DefaultSettings()
	jst := time.FixedZone("JST", 9*3600)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"late evening", time.Date(2026, 3, 1, 22, 30, 0, 0, jst), true},
		{"just past start", time.Date(2026, 3, 1, 21, 0, 0, 0, jst), true},
		{"early morning", time.Date(2026, 3, 1, 6, 0, 0, 0, jst), true},
		{"just before end", time.Date(2026, 3, 1, 8, 59, 0, 0, jst), true},
		{"at end", time.Date(2026, 3, 1, 9, 0, 0, 0, jst), false},
		{"midday", time.Date(2026, 3, 1, 13, 0, 0, 0, jst), false},
		{"just before start", time.Date(2026, 3, 1, 20, 59, 0, 0, jst), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := settings.InQuietHours(tt.at); got != tt.want {
				t.Errorf("at %s: got %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestInQuietHoursDisabled(t *testing.T) {
	settings := DefaultSettings()
	settings.QuietHoursEnabled = false
	if settings.InQuietHours(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)) {
		t.Error("disabled window must never match")
	}
}
