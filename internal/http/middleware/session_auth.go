package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wakabadc/clinic-line-admin/internal/auth"
)

// SessionAuth guards admin endpoints. Browser traffic carries the signed
// session cookie; machine clients may instead present a Bearer JWT when
// apiTokenSecret is configured. The verified session is attached to the
// request context for audit attribution.
func SessionAuth(codec *auth.TokenCodec, apiTokenSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(auth.CookieName); err == nil {
				if session, ok := codec.Verify(cookie.Value); ok {
					next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
					return
				}
			}

			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				session, ok := verifyAPIToken(strings.TrimPrefix(header, "Bearer "), apiTokenSecret)
				if ok {
					next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
					return
				}
			}

			http.Error(w, "authentication required", http.StatusUnauthorized)
		})
	}
}

func verifyAPIToken(tokenString, secret string) (auth.Session, bool) {
	if secret == "" {
		return auth.Session{}, false
	}
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return auth.Session{}, false
	}
	// The subject carries the acting staff id; API tokens without one act
	// as the shared login and audit with a null staff id.
	if claims.Subject == auth.LegacySubject {
		return auth.Session{}, true
	}
	return auth.Session{StaffID: claims.Subject}, true
}
