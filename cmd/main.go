package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/rryowa/session_keeper/internal/api"
	"github.com/rryowa/session_keeper/internal/authclient"
	"github.com/rryowa/session_keeper/internal/controller"
	"github.com/rryowa/session_keeper/internal/guard"
	"github.com/rryowa/session_keeper/internal/scheduler"
	"github.com/rryowa/session_keeper/internal/service"
	"github.com/rryowa/session_keeper/internal/util"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()

	authClient, err := authclient.NewClient(util.NewAuthServiceConfig(), logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	sessionService := service.NewSessionService(authClient, scheduler.RealClock(), util.NewRefreshConfig(), logger)
	if err := sessionService.Init(ctx); err != nil {
		logger.Fatal(zap.Error(err))
	}

	navigationGuard, err := guard.New(sessionService, guard.LoginPath, guard.DefaultRoutes()...)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	controller := controller.NewController(logger, sessionService)
	cleanupFuncs := []func(){sessionService.Dispose}

	apiServer := api.NewAPI(controller, navigationGuard, logger, util.NewServerConfig(), cleanupFuncs)
	apiServer.Run(ctx)
}
