package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rryowa/session_keeper/internal/models"
	"github.com/rryowa/session_keeper/internal/util"
)

const (
	LoginPath    = "/api/auth/login"
	RegisterPath = "/api/auth/register"
	RefreshPath  = "/api/auth/refresh"
	LogoutPath   = "/api/auth/logout"

	RequestIDHeader = "X-Request-Id"

	maxResponseBody            = 1 << 20
	defaultHTTPStatusThreshold = 300
)

// Client talks to the external auth service. Access and refresh tokens are
// carried by the cookie jar, so no call here handles them directly.
type Client struct {
	client  *http.Client
	baseURL *url.URL
	log     *zap.SugaredLogger
}

func NewClient(cfg *util.AuthServiceConfig, log *zap.SugaredLogger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse auth service url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("auth service url %q must be absolute", cfg.BaseURL)
	}

	if base.Scheme == "http" && !isLoopback(base.Hostname()) {
		log.Warnw("auth service is reached over plain http, secure session cookies will not be sent back",
			"url", base.String())
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		client: &http.Client{
			Jar:     loopbackJar{CookieJar: jar},
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		log:     log,
	}, nil
}

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return c.authenticate(ctx, LoginPath, req)
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	return c.authenticate(ctx, RegisterPath, req)
}

// Refresh renews the session carried by the cookie jar. The returned response is
// nil when the service replied without a data envelope.
func (c *Client) Refresh(ctx context.Context) (*models.LoginResponse, error) {
	data, err := c.post(ctx, RefreshPath, nil)
	if err != nil {
		return nil, err
	}
	if isAbsent(data) {
		return nil, nil
	}
	return decodeLoginResponse(RefreshPath, data)
}

// Logout asks the service to revoke the refresh token held in the cookie jar.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.post(ctx, LogoutPath, nil)
	return err
}

func (c *Client) authenticate(ctx context.Context, path string, payload interface{}) (*models.LoginResponse, error) {
	data, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	if isAbsent(data) {
		return &models.LoginResponse{}, nil
	}
	return decodeLoginResponse(path, data)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", path, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warnw("auth request failed", "path", path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %w", ErrNetwork, path, err)
	}

	var envelope models.RawServiceResponse
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, &envelope)
	}

	if resp.StatusCode >= defaultHTTPStatusThreshold {
		respErr := &ResponseError{
			Status:  resp.StatusCode,
			Code:    envelope.Code,
			Message: envelope.Message,
		}
		c.log.Debugw("auth service returned non-2xx status",
			"path", path, "request_id", requestID, "status", resp.StatusCode, "code", envelope.Code)
		return nil, respErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode %s response: %w", ErrNetwork, path, decodeErr)
	}

	c.log.Debugw("auth request done", "path", path, "request_id", requestID, "status", resp.StatusCode)
	return envelope.Data, nil
}

func decodeLoginResponse(path string, data json.RawMessage) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode %s data: %w", ErrNetwork, path, err)
	}
	return &out, nil
}

func isAbsent(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
