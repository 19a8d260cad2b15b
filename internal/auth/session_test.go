package auth

import (
	"strings"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)

	token := codec.Issue("staff-42")
	session, ok := codec.Verify(token)
	if !ok {
		t.Fatal("expected token to verify")
	}
	if session.StaffID != "staff-42" {
		t.Errorf("expected staff-42, got %q", session.StaffID)
	}
	if session.IsLegacy() {
		t.Error("staff session should not be legacy")
	}
}

func TestLegacyToken(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)

	token := codec.Issue("")
	if !strings.HasPrefix(token, LegacySubject+".") {
		t.Fatalf("legacy token should carry the sentinel subject: %s", token)
	}
	session, ok := codec.Verify(token)
	if !ok {
		t.Fatal("expected token to verify")
	}
	if !session.IsLegacy() {
		t.Error("expected a legacy session")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	token := codec.Issue("staff-42")

	parts := strings.SplitN(token, ".", 3)
	forged := "staff-99." + parts[1] + "." + parts[2]
	if _, ok := codec.Verify(forged); ok {
		t.Error("tampered subject must not verify")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token := NewTokenCodec("secret-a", time.Hour).Issue("staff-42")
	if _, ok := NewTokenCodec("secret-b", time.Hour).Verify(token); ok {
		t.Error("token signed with a different secret must not verify")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	codec.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token := codec.Issue("staff-42")

	codec.now = time.Now
	if _, ok := codec.Verify(token); ok {
		t.Error("expired token must not verify")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	for _, token := range []string{"", "a.b", "a.b.c.d", "admin.notanumber.sig"} {
		if _, ok := codec.Verify(token); ok {
			t.Errorf("malformed token %q must not verify", token)
		}
	}
}
