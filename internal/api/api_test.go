package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rryowa/session_keeper/internal/authclient"
	"github.com/rryowa/session_keeper/internal/controller"
	"github.com/rryowa/session_keeper/internal/guard"
	"github.com/rryowa/session_keeper/internal/models"
	"github.com/rryowa/session_keeper/internal/service"
	"github.com/rryowa/session_keeper/internal/util"
)

type stubSessions struct {
	authenticated bool
	loginErr      error
	refreshErr    error
	logoutErr     error
	logins        int
}

func (s *stubSessions) Login(_ context.Context, _ models.LoginRequest) error {
	s.logins++
	if s.loginErr != nil {
		return s.loginErr
	}
	s.authenticated = true
	return nil
}

func (s *stubSessions) Register(_ context.Context, _ models.RegisterRequest) error {
	s.authenticated = true
	return nil
}

func (s *stubSessions) Refresh(_ context.Context) error {
	if s.refreshErr != nil {
		s.authenticated = false
	}
	return s.refreshErr
}

func (s *stubSessions) Logout(_ context.Context) error {
	s.authenticated = false
	return s.logoutErr
}

func (s *stubSessions) Snapshot() models.Session {
	return models.Session{IsAuthenticated: s.authenticated}
}

func (s *stubSessions) IsAuthenticated() bool {
	return s.authenticated
}

func newTestAPI(t *testing.T, sessions *stubSessions) http.Handler {
	t.Helper()

	logger := zaptest.NewLogger(t).Sugar()
	g, err := guard.New(sessions, guard.LoginPath, guard.DefaultRoutes()...)
	require.NoError(t, err)

	a := NewAPI(controller.NewController(logger, sessions), g, logger, &util.ServerConfig{}, nil)
	require.NoError(t, a.Setup())
	return a.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.RawServiceResponse {
	t.Helper()

	var env models.RawServiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestNavigation(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		authenticated bool
		wantStatus    int
		wantLocation  string
	}{
		{name: "dashboard without session", path: "/dashboard", wantStatus: http.StatusFound, wantLocation: "/login"},
		{name: "dashboard with session", path: "/dashboard", authenticated: true, wantStatus: http.StatusOK},
		{name: "login is public", path: "/login", wantStatus: http.StatusOK},
		{name: "register is public", path: "/register", wantStatus: http.StatusOK},
		{name: "login while signed in", path: "/login", authenticated: true, wantStatus: http.StatusOK},
		{name: "root goes to login", path: "/", wantStatus: http.StatusFound, wantLocation: "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestAPI(t, &stubSessions{authenticated: tt.authenticated})

			rec := do(t, h, http.MethodGet, tt.path, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
		})
	}
}

func TestNavigation_FollowsSessionChanges(t *testing.T) {
	sessions := &stubSessions{}
	h := newTestAPI(t, sessions)

	assert.Equal(t, http.StatusFound, do(t, h, http.MethodGet, "/dashboard", "").Code)

	rec := do(t, h, http.MethodPost, "/api/session/login", `{"username":"alice","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/dashboard", "").Code)

	rec = do(t, h, http.MethodPost, "/api/session/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusFound, do(t, h, http.MethodGet, "/dashboard", "").Code)
}

func TestLogin_InvalidPayload(t *testing.T) {
	sessions := &stubSessions{}
	h := newTestAPI(t, sessions)

	rec := do(t, h, http.MethodPost, "/api/session/login", `{"username":"alice"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, models.CodeRequestValidationFail, env.Code)
	assert.Equal(t, "/api/session/login", env.Path)
	assert.NotNil(t, env.Timestamp)
	assert.Zero(t, sessions.logins)
}

func TestLogin_Success(t *testing.T) {
	h := newTestAPI(t, &stubSessions{})

	rec := do(t, h, http.MethodPost, "/api/session/login", `{"username":"alice","password":"secret"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env models.ServiceResponse[models.Session]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, models.CodeOK, env.Code)
	assert.True(t, env.Data.IsAuthenticated)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		loginErr   error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "credentials rejected",
			loginErr:   &authclient.ResponseError{Status: http.StatusUnauthorized, Code: "BAD_CREDENTIALS", Message: "wrong password"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "BAD_CREDENTIALS",
		},
		{
			name:       "auth service down",
			loginErr:   fmt.Errorf("login: %w", authclient.ErrNetwork),
			wantStatus: http.StatusBadGateway,
			wantCode:   models.CodeUpstreamUnavailable,
		},
		{
			name:       "upstream 5xx",
			loginErr:   &authclient.ResponseError{Status: http.StatusServiceUnavailable},
			wantStatus: http.StatusBadGateway,
			wantCode:   models.CodeUpstreamUnavailable,
		},
		{
			name:       "superseded by logout",
			loginErr:   service.ErrSuperseded,
			wantStatus: http.StatusConflict,
			wantCode:   models.CodeConflict,
		},
		{
			name:       "unexpected",
			loginErr:   fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   models.CodeInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestAPI(t, &stubSessions{loginErr: tt.loginErr})

			rec := do(t, h, http.MethodPost, "/api/session/login", `{"username":"alice","password":"secret"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

func TestRefresh_ExpiredSession(t *testing.T) {
	refreshErr := fmt.Errorf("%w: %w", service.ErrSessionExpiredDuringRefresh,
		&authclient.ResponseError{Status: http.StatusUnauthorized})
	sessions := &stubSessions{authenticated: true, refreshErr: refreshErr}
	h := newTestAPI(t, sessions)

	rec := do(t, h, http.MethodPost, "/api/session/refresh", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, models.CodeUnauthenticated, decodeEnvelope(t, rec).Code)
	assert.Equal(t, http.StatusFound, do(t, h, http.MethodGet, "/dashboard", "").Code)
}

func TestLogout_RemoteFailureStillSucceeds(t *testing.T) {
	sessions := &stubSessions{authenticated: true, logoutErr: fmt.Errorf("remote logout: %w", authclient.ErrNetwork)}
	h := newTestAPI(t, sessions)

	rec := do(t, h, http.MethodPost, "/api/session/logout", "")

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Message)
	assert.False(t, sessions.IsAuthenticated())
}

func TestUnknownAPIPath(t *testing.T) {
	h := newTestAPI(t, &stubSessions{})

	rec := do(t, h, http.MethodGet, "/api/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.CodeNotFound, decodeEnvelope(t, rec).Code)
}

func TestGetSession(t *testing.T) {
	h := newTestAPI(t, &stubSessions{authenticated: true})

	rec := do(t, h, http.MethodGet, "/api/session", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	var env models.ServiceResponse[models.Session]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Data.IsAuthenticated)
}
