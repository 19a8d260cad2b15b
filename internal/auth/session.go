// Package auth implements the admin session: an HMAC-signed cookie of the
// form subject.expiry.signature, where subject is either the legacy shared
// login sentinel or a staff id.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CookieName is the session cookie consumed by the admin UI.
const CookieName = "admin_session"

// LegacySubject marks a session opened with the shared env credentials
// rather than a staff row. Audit rows record staff_id = null for it.
const LegacySubject = "admin"

// Session identifies who is acting. StaffID is empty for the legacy login.
type Session struct {
	StaffID string
}

// IsLegacy reports whether the session came from the shared credentials.
func (s Session) IsLegacy() bool {
	return s.StaffID == ""
}

// TokenCodec signs and verifies session tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec creates a codec with the given signing secret and token TTL.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a signed token. An empty staffID issues a legacy token.
func (c *TokenCodec) Issue(staffID string) string {
	subject := staffID
	if subject == "" {
		subject = LegacySubject
	}
	expiry := c.now().Add(c.ttl).UnixMilli()
	payload := fmt.Sprintf("%s.%d", subject, expiry)
	return payload + "." + c.sign(payload)
}

// Verify checks the signature and expiry and returns the session.
// A nil session with ok=false means the token is absent, malformed,
// expired, or tampered with.
func (c *TokenCodec) Verify(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Session{}, false
	}
	subject, expStr, sig := parts[0], parts[1], parts[2]
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || exp < c.now().UnixMilli() {
		return Session{}, false
	}
	payload := subject + "." + expStr
	expected := c.sign(payload)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return Session{}, false
	}
	if subject == LegacySubject {
		return Session{}, true
	}
	return Session{StaffID: subject}, true
}

// TTL returns the token lifetime, used for the cookie Max-Age.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

func (c *TokenCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
