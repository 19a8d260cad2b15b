package auth

import "context"

type contextKey string

const sessionKey contextKey = "adminSession"

// WithSession returns a context carrying the verified admin session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the admin session if one was attached by the
// auth middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// StaffIDFromContext returns the acting staff id, or "" for the legacy
// shared login and for unauthenticated contexts.
func StaffIDFromContext(ctx context.Context) string {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return ""
	}
	return s.StaffID
}
