package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/rryowa/session_keeper/internal/guard"
)

// NavigationGuardMiddleware runs the guard on every view request and answers
// with a redirect to the login view when it refuses.
func NavigationGuardMiddleware(g *guard.Guard, log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			decision := g.Check(path)
			if decision.Outcome == guard.Redirected {
				log.Debugw("Navigation redirected", "from", path, "to", decision.Target)
				return c.Redirect(http.StatusFound, decision.Target)
			}

			return next(c)
		}
	}
}

// RequestIDConfig stamps every inbound request with a uuid unless the caller sent one.
func RequestIDConfig() echomiddleware.RequestIDConfig {
	return echomiddleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: echo.HeaderXRequestID,
	}
}

func GetLoggerMiddlewareConfig(a *API) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,

		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"request_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				fields = append(fields, "error", v.Error)
				a.log.Errorw("Request failed", fields...)
			case v.Error != nil:
				fields = append(fields, "error", v.Error)
				a.log.Warnw("Request rejected", fields...)
			default:
				a.log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
