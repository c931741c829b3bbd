package controller

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/session_keeper/internal/guard"
	"github.com/rryowa/session_keeper/internal/models"
	"github.com/rryowa/session_keeper/internal/util"
)

// SessionManager is what the handlers need from the session service.
type SessionManager interface {
	Login(ctx context.Context, req models.LoginRequest) error
	Register(ctx context.Context, req models.RegisterRequest) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Snapshot() models.Session
}

// EchoRouter is satisfied by both *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

type Controller struct {
	zapLogger *zap.SugaredLogger
	sessions  SessionManager
}

func NewController(logger *zap.SugaredLogger, sessions SessionManager) *Controller {
	return &Controller{
		zapLogger: logger,
		sessions:  sessions,
	}
}

// RegisterHandlers mounts the session API on a router already prefixed with /api.
func RegisterHandlers(router EchoRouter, c *Controller) {
	router.GET("/ping", c.CheckServer)
	router.GET("/session", c.GetSession)
	router.POST("/session/login", c.Login)
	router.POST("/session/register", c.Register)
	router.POST("/session/refresh", c.Refresh)
	router.POST("/session/logout", c.Logout)
}

// RegisterViews mounts the views; navigation middleware is attached to each of them.
func RegisterViews(router EchoRouter, c *Controller, navigation ...echo.MiddlewareFunc) {
	router.GET("/", c.Root)
	router.GET(guard.LoginPath, c.LoginView, navigation...)
	router.GET(guard.RegisterPath, c.RegisterView, navigation...)
	router.GET(guard.DashboardPath, c.DashboardView, navigation...)
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (GET /api/session).
func (c *Controller) GetSession(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, models.Success(c.sessions.Snapshot()))
}

// (POST /api/session/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, models.CodeRequestValidationFail, "invalid login payload")
	}
	if err := c.sessions.Login(ctx.Request().Context(), req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.Success(c.sessions.Snapshot()))
}

// (POST /api/session/register).
func (c *Controller) Register(ctx echo.Context) error {
	var req models.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, models.CodeRequestValidationFail, "invalid registration payload")
	}
	if err := c.sessions.Register(ctx.Request().Context(), req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.Success(c.sessions.Snapshot()))
}

// (POST /api/session/refresh).
func (c *Controller) Refresh(ctx echo.Context) error {
	if err := c.sessions.Refresh(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.Success(c.sessions.Snapshot()))
}

// (POST /api/session/logout). The local session is closed even if the auth
// service could not be told, so that case is still a success.
func (c *Controller) Logout(ctx echo.Context) error {
	resp := models.Success(models.Session{})
	if err := c.sessions.Logout(ctx.Request().Context()); err != nil {
		c.zapLogger.Warnw("logout finished locally only", "error", err)
		resp.Message = "signed out locally; the auth service could not be reached"
	}
	resp.Data = c.sessions.Snapshot()
	return ctx.JSON(http.StatusOK, resp)
}

type viewModel struct {
	View    string         `json:"view"`
	Session models.Session `json:"session"`
}

// (GET /).
func (c *Controller) Root(ctx echo.Context) error {
	return ctx.Redirect(http.StatusFound, guard.LoginPath)
}

// (GET /login).
func (c *Controller) LoginView(ctx echo.Context) error {
	return c.renderView(ctx, "login")
}

// (GET /register).
func (c *Controller) RegisterView(ctx echo.Context) error {
	return c.renderView(ctx, "register")
}

// (GET /dashboard).
func (c *Controller) DashboardView(ctx echo.Context) error {
	return c.renderView(ctx, "dashboard")
}

func (c *Controller) renderView(ctx echo.Context, name string) error {
	return ctx.JSON(http.StatusOK, models.Success(viewModel{View: name, Session: c.sessions.Snapshot()}))
}
