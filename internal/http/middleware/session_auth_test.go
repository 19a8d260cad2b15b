package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wakabadc/clinic-line-admin/internal/auth"
)

func signedAPIToken(t *testing.T, secret, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestSessionAuthRejectsAnonymous(t *testing.T) {
	codec := auth.NewTokenCodec("secret", time.Hour)
	mw := SessionAuth(codec, "")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestSessionAuthAcceptsCookie(t *testing.T) {
	codec := auth.NewTokenCodec("secret", time.Hour)
	mw := SessionAuth(codec, "")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: codec.Issue("staff-1")})
	rec := httptest.NewRecorder()

	called := false
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if got := auth.StaffIDFromContext(r.Context()); got != "staff-1" {
			t.Fatalf("expected staff-1 in context, got %q", got)
		}
	})).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected handler to be called")
	}
}

func TestSessionAuthRejectsTamperedCookie(t *testing.T) {
	codec := auth.NewTokenCodec("secret", time.Hour)
	mw := SessionAuth(codec, "")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: codec.Issue("staff-1") + "x"})
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestSessionAuthAcceptsBearerJWT(t *testing.T) {
	codec := auth.NewTokenCodec("secret", time.Hour)
	mw := SessionAuth(codec, "api-secret")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+signedAPIToken(t, "api-secret", "staff-9"))
	rec := httptest.NewRecorder()

	called := false
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if got := auth.StaffIDFromContext(r.Context()); got != "staff-9" {
			t.Fatalf("expected staff-9 in context, got %q", got)
		}
	})).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected handler to be called")
	}
}

func TestSessionAuthBearerDisabledWithoutSecret(t *testing.T) {
	codec := auth.NewTokenCodec("secret", time.Hour)
	mw := SessionAuth(codec, "")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+signedAPIToken(t, "api-secret", "staff-9"))
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestSessionAuthBearerWrongSecret(t *testing.T) {
	codec := auth.NewTokenCodec("secret", time.Hour)
	mw := SessionAuth(codec, "api-secret")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+signedAPIToken(t, "other-secret", "staff-9"))
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}
