package line

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := New(Config{ChannelID: "123"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("id without secret must fail, got %v", err)
	}
	if _, err := New(Config{ChannelAccessToken: "tok"}); err != nil {
		t.Fatalf("static token alone must suffice: %v", err)
	}
}

func TestPushStaticToken(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		To       string `json:"to"`
		Messages []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/bot/message/push" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, ChannelAccessToken: "static-token"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := c.Push(context.Background(), "U123", "こんにちは"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if gotAuth != "Bearer static-token" {
		t.Errorf("expected static token auth, got %q", gotAuth)
	}
	if gotBody.To != "U123" || len(gotBody.Messages) != 1 || gotBody.Messages[0].Text != "こんにちは" {
		t.Errorf("unexpected push payload: %+v", gotBody)
	}
	if gotBody.Messages[0].Type != "text" {
		t.Errorf("expected text message type, got %s", gotBody.Messages[0].Type)
	}
}

func TestPushTruncatesLongText(t *testing.T) {
	var sentLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Text string `json:"text"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		sentLen = len([]rune(body.Messages[0].Text))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, ChannelAccessToken: "tok"})
	long := strings.Repeat("あ", MaxMessageLength+100)
	if err := c.Push(context.Background(), "U1", long); err != nil {
		t.Fatalf("push: %v", err)
	}
	if sentLen != MaxMessageLength {
		t.Errorf("expected truncation to %d runes, sent %d", MaxMessageLength, sentLen)
	}
}

func TestPushAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"The user hasn't added the LINE Official Account as a friend"}`)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, ChannelAccessToken: "tok"})
	err := c.Push(context.Background(), "U1", "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "status=400") {
		t.Errorf("error must carry the status code, got %v", err)
	}
}

func TestClientCredentialsExchangeAndCache(t *testing.T) {
	var tokenCalls, pushCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/oauth/accessToken":
			tokenCalls++
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			if r.Form.Get("grant_type") != "client_credentials" {
				t.Errorf("unexpected grant_type %q", r.Form.Get("grant_type"))
			}
			if r.Form.Get("client_id") != "1234" || r.Form.Get("client_secret") != "sec" {
				t.Errorf("unexpected credentials %v", r.Form)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "short-lived",
				"expires_in":   2592000,
			})
		case "/v2/bot/message/push":
			pushCalls++
			if got := r.Header.Get("Authorization"); got != "Bearer short-lived" {
				t.Errorf("expected exchanged token, got %q", got)
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, ChannelID: "1234", ChannelSecret: "sec"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if err := c.Push(ctx, "U1", "one"); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := c.Push(ctx, "U2", "two"); err != nil {
		t.Fatalf("second push: %v", err)
	}
	if tokenCalls != 1 {
		t.Errorf("token must be exchanged once and cached, got %d calls", tokenCalls)
	}
	if pushCalls != 2 {
		t.Errorf("expected 2 pushes, got %d", pushCalls)
	}
}

func TestClientCredentialsRefreshAfterExpiry(t *testing.T) {
	var tokenCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/oauth/accessToken":
			tokenCalls++
			json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 120})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, ChannelID: "1", ChannelSecret: "s"})
	current := time.Now()
	c.now = func() time.Time { return current }

	ctx := context.Background()
	if err := c.Push(ctx, "U1", "a"); err != nil {
		t.Fatalf("push: %v", err)
	}
	current = current.Add(3 * time.Minute)
	if err := c.Push(ctx, "U1", "b"); err != nil {
		t.Fatalf("push after expiry: %v", err)
	}
	if tokenCalls != 2 {
		t.Errorf("expected a refresh after expiry, got %d token calls", tokenCalls)
	}
}

func TestPushValidation(t *testing.T) {
	c, _ := New(Config{ChannelAccessToken: "tok"})
	if err := c.Push(context.Background(), "", "hi"); err == nil {
		t.Error("empty recipient must be rejected")
	}
	if err := c.Push(context.Background(), "U1", "  "); err == nil {
		t.Error("blank text must be rejected")
	}
}
