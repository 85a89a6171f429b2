package api

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
	"time"

	"github.com/antonpetrovs/whisperline/internal/client/session"
	"github.com/antonpetrovs/whisperline/internal/common"
)

const requestTimeout = 12 * time.Second

// HTTPClient implements Client over the server's JSON API.
type HTTPClient struct {
	baseURL  string
	deviceID string
	sessions *session.Manager
	http     *http.Client
}

// NewHTTPClient builds a client for the server at baseURL and wires itself
// into the session manager as its refresh backend.
func NewHTTPClient(baseURL, deviceID string, sessions *session.Manager) *HTTPClient {
	c := &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		deviceID: deviceID,
		sessions: sessions,
		http:     &http.Client{Timeout: requestTimeout},
	}
	sessions.SetRefreshFunc(c.Refresh)
	return c
}

// BaseURL returns the configured server address (embedded in QR payloads).
func (c *HTTPClient) BaseURL() string { return c.baseURL }

func (c *HTTPClient) Close() error { return nil }

// do executes one request. Body is marshaled as JSON when non-nil; out is
// unmarshaled from the response when non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any, authorized bool) error {
	status, err := c.doOnce(ctx, method, path, body, out, authorized)
	if err != nil {
		return err
	}

	// Reactive refresh path: exactly one refresh, one retry.
	if status == http.StatusUnauthorized && authorized {
		if err := c.sessions.Refresh(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		status, err = c.doOnce(ctx, method, path, body, out, authorized)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return ErrUnauthorized
		}
	}

	return statusErr(status)
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, body any, out any, authorized bool) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.DeviceIDHeaderName, c.deviceID)
	if authorized {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+c.sessions.AccessToken())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func statusErr(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status >= 500, status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: server returned %d", ErrUnavailable, status)
	default:
		return fmt.Errorf("server returned %d", status)
	}
}

func (c *HTTPClient) Register(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &resp, false); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	c.sessions.SetTokens(resp.AccessToken, resp.RefreshToken)
	return &resp, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp, false); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.sessions.SetTokens(resp.AccessToken, resp.RefreshToken)
	return &resp, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	body := map[string]string{"refreshToken": refreshToken}
	// Deliberately unauthorized: a refresh must work with an expired access
	// token, and routing it through do() would recurse into itself.
	status, err := c.doOnce(ctx, http.MethodPost, "/auth/refresh", body, &resp, false)
	if err != nil {
		return "", err
	}
	if err := statusErr(status); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	if err := c.do(ctx, http.MethodPost, "/messages/send", req, &resp, true); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &resp, nil
}

func (c *HTTPClient) MessagesSince(ctx context.Context, since time.Time) ([]RemoteMessage, error) {
	var resp struct {
		Messages []RemoteMessage `json:"messages"`
	}
	path := "/messages/since?timestamp=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return nil, fmt.Errorf("messages since: %w", err)
	}
	return resp.Messages, nil
}

func (c *HTTPClient) PairInit(ctx context.Context) (string, error) {
	var resp struct {
		QRToken string `json:"qrToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/qr-init", nil, &resp, true); err != nil {
		return "", fmt.Errorf("pairing init: %w", err)
	}
	return resp.QRToken, nil
}

func (c *HTTPClient) PairRedeem(ctx context.Context, token, masterKeyB64 string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"token": token, "masterKey": masterKeyB64}
	if err := c.do(ctx, http.MethodPost, "/auth/qr-login", body, &resp, false); err != nil {
		// The server answers 401 for expired, consumed, and unknown tokens.
		if errors.Is(err, ErrUnauthorized) {
			return nil, common.ErrPairingToken
		}
		return nil, fmt.Errorf("pairing redemption: %w", err)
	}
	c.sessions.SetTokens(resp.AccessToken, resp.RefreshToken)
	return &resp, nil
}
