package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	middleware "github.com/oapi-codegen/echo-middleware"
	"go.uber.org/zap"

	"github.com/rryowa/session_keeper/internal/controller"
	"github.com/rryowa/session_keeper/internal/guard"
	"github.com/rryowa/session_keeper/internal/util"
)

const (
	shutdownTimeout = 5 * time.Second
)

type API struct {
	server          *echo.Echo
	controller      *controller.Controller
	guard           *guard.Guard
	log             *zap.SugaredLogger
	gracefulTimeout time.Duration
	cleanupFuncs    []func()
}

func NewAPI(
	c *controller.Controller,
	g *guard.Guard,
	l *zap.SugaredLogger,
	sc *util.ServerConfig,
	cleanupFuncs []func(),
) *API {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.Addr = sc.ServerAddr
	e.Server.WriteTimeout = sc.WriteTimeout
	e.Server.ReadTimeout = sc.ReadTimeout
	e.Server.IdleTimeout = sc.IdleTimeout
	e.HTTPErrorHandler = ErrorHandler(l)

	return &API{
		server:          e,
		controller:      c,
		guard:           g,
		log:             l,
		gracefulTimeout: sc.GracefulTimeout,
		cleanupFuncs:    cleanupFuncs,
	}
}

// Setup installs middleware and routes. Run calls it; tests call it directly.
func (a *API) Setup() error {
	swagger, err := controller.GetSwagger()
	if err != nil {
		return fmt.Errorf("load OpenAPI document: %w", err)
	}
	swagger.Servers = nil

	a.server.Use(
		echomiddleware.RequestIDWithConfig(RequestIDConfig()),
		echomiddleware.RequestLoggerWithConfig(GetLoggerMiddlewareConfig(a)),
		echomiddleware.Recover(),
	)

	g := a.server.Group("/api")
	g.Use(middleware.OapiRequestValidator(swagger))
	controller.RegisterHandlers(g, a.controller)

	controller.RegisterViews(a.server, a.controller, NavigationGuardMiddleware(a.guard, a.log))
	return nil
}

func (a *API) Handler() http.Handler {
	return a.server
}

func (a *API) Run(ctxBackground context.Context) {
	ctx, stop := signal.NotifyContext(ctxBackground, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Setup(); err != nil {
		a.log.Fatalf("Failed to set up routes: %v", err)
	}

	a.ListenGracefulShutdown(ctx)
}

func (a *API) ListenGracefulShutdown(ctx context.Context) {
	go func() {
		err := a.server.Start(a.server.Server.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()
	a.log.Infof("Listening on: %s", a.server.Server.Addr)

	<-ctx.Done()
	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Errorf("shutdown: %v", err)
	}

	cleanupDone := make(chan struct{})
	go func() {
		for _, cleanup := range a.cleanupFuncs {
			cleanup()
		}
		close(cleanupDone)
	}()

	select {
	case <-cleanupDone:
		a.log.Info("server shutdown completed")
	case <-time.After(a.gracefulTimeout):
		a.log.Warn("cleanup did not finish in time")
	}
}
