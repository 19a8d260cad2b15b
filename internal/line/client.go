package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"log/slog"
)

const (
	defaultBaseURL   = "https://api.line.me"
	defaultUserAgent = "clinic-line-admin/0.1"

	// MaxMessageLength is the LINE Messaging API limit for a single text
	// message. Longer bodies are truncated before sending.
	MaxMessageLength = 5000
)

// ErrNotConfigured is returned when no channel credentials are available.
// Callers treat this as a hard failure before contacting any recipient.
var ErrNotConfigured = errors.New("line: channel credentials not configured")

// Config controls how the LINE Messaging API client behaves.
type Config struct {
	BaseURL            string
	ChannelAccessToken string
	ChannelID          string
	ChannelSecret      string
	Timeout            time.Duration
	HTTPClient         *http.Client
	Logger             *slog.Logger
	UserAgent          string
}

// Client wraps the LINE Messaging API endpoints used by the dashboard.
type Client struct {
	baseURL       string
	staticToken   string
	channelID     string
	channelSecret string
	httpClient    *http.Client
	logger        *slog.Logger
	userAgent     string
	now           func() time.Time

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

// New creates a configured Client. Either a long-lived channel access token
// or a channel ID/secret pair must be present; with only the latter the
// client exchanges client credentials for a short-lived token on demand.
func New(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.ChannelAccessToken)
	channelID := strings.TrimSpace(cfg.ChannelID)
	channelSecret := strings.TrimSpace(cfg.ChannelSecret)
	if token == "" && (channelID == "" || channelSecret == "") {
		return nil, ErrNotConfigured
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:       baseURL,
		staticToken:   token,
		channelID:     channelID,
		channelSecret: channelSecret,
		httpClient:    httpClient,
		logger:        logger,
		userAgent:     userAgent,
		now:           time.Now,
	}, nil
}

// Push sends a single text message to one LINE user. Text longer than
// MaxMessageLength is truncated rather than rejected.
func (c *Client) Push(ctx context.Context, to, text string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("line: recipient user id required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("line: message text required")
	}
	if runes := []rune(text); len(runes) > MaxMessageLength {
		text = string(runes[:MaxMessageLength])
	}
	body, err := json.Marshal(struct {
		To       string        `json:"to"`
		Messages []textMessage `json:"messages"`
	}{
		To:       to,
		Messages: []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("line: marshal push body: %w", err)
	}
	return c.invoke(ctx, "/v2/bot/message/push", body)
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) invoke(ctx context.Context, path string, body []byte) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("line: http error: %w", err)
	}
	defer resp.Body.Close()
	data, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("line: read response: %w", readErr)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return decodeAPIError(resp.StatusCode, data)
}

// accessToken returns the static channel token when one is configured, and
// otherwise exchanges the channel ID/secret, caching the result until a
// minute before it expires.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.staticToken != "" {
		return c.staticToken, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedToken != "" && c.now().Before(c.tokenExpiry) {
		return c.cachedToken, nil
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.channelID)
	form.Set("client_secret", c.channelSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/oauth/accessToken", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("line: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("line: token exchange: %w", err)
	}
	defer resp.Body.Close()
	data, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", fmt.Errorf("line: read token response: %w", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeAPIError(resp.StatusCode, data)
	}
	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("line: decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", errors.New("line: token exchange returned empty token")
	}
	c.cachedToken = parsed.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(parsed.ExpiresIn)*time.Second - time.Minute)
	c.logger.Debug("line channel token refreshed", "expires_in", parsed.ExpiresIn)
	return c.cachedToken, nil
}

type apiError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message,omitempty"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("line: %s (status=%d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("line: http status %d", e.StatusCode)
}

func decodeAPIError(status int, body []byte) error {
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &apiError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	parsed.StatusCode = status
	return &parsed
}
