package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/session_keeper/internal/authclient"
	"github.com/rryowa/session_keeper/internal/models"
	"github.com/rryowa/session_keeper/internal/service"
	"github.com/rryowa/session_keeper/internal/util"
)

func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, code, msg := classifyError(err)
		if status >= http.StatusInternalServerError {
			log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI, "status", status)
		}

		body := models.Failure(c.Request().URL.Path, code, msg, time.Now().UTC())
		if err := c.JSON(status, body); err != nil {
			log.Errorw("failed to write json response", "error", err)
		}
	}
}

func classifyError(err error) (int, string, string) {
	var respErr util.ResponseError
	var authErr *authclient.ResponseError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &respErr):
		return respErr.Status, respErr.Code, respErr.Msg
	case errors.Is(err, service.ErrSessionExpiredDuringRefresh):
		return http.StatusUnauthorized, models.CodeUnauthenticated, "session expired, please sign in again"
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized, models.CodeUnauthenticated, "not signed in"
	case errors.Is(err, authclient.ErrAuthRejected):
		if errors.As(err, &authErr) {
			msg := authErr.Message
			if msg == "" {
				msg = http.StatusText(authErr.Status)
			}
			code := authErr.Code
			if code == "" {
				code = models.CodeUnauthenticated
			}
			return authErr.Status, code, msg
		}
		return http.StatusUnauthorized, models.CodeUnauthenticated, err.Error()
	case errors.Is(err, authclient.ErrNetwork):
		return http.StatusBadGateway, models.CodeUpstreamUnavailable, "auth service unavailable"
	case errors.Is(err, service.ErrSuperseded):
		return http.StatusConflict, models.CodeConflict, "session changed while the request was in flight"
	case errors.Is(err, service.ErrNotRunning):
		return http.StatusServiceUnavailable, models.CodeInternalServerError, "session service is not running"
	case errors.As(err, &httpErr):
		return httpErr.Code, codeForStatus(httpErr.Code), fmt.Sprint(httpErr.Message)
	default:
		return http.StatusInternalServerError, models.CodeInternalServerError, "internal server error"
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return models.CodeRequestValidationFail
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.CodeUnauthenticated
	case http.StatusNotFound:
		return models.CodeNotFound
	default:
		if status < http.StatusInternalServerError {
			return models.CodeRequestValidationFail
		}
		return models.CodeInternalServerError
	}
}
