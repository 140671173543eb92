package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jeovahfialho/companies-api/internal/api"
	"github.com/jeovahfialho/companies-api/internal/bootstrap"
	"github.com/jeovahfialho/companies-api/internal/config"
	"github.com/jeovahfialho/companies-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config: ", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Development()); err != nil {
		log.Fatal("init logger: ", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("startup aborted", zap.Error(err))
	}
	defer deps.Close()

	handler := api.NewHandler(deps.Companies, map[string]api.HealthChecker{
		"database": deps.DB,
		"redis":    deps.Cache,
	})

	app := api.NewApp(api.AppOptions{
		ReadTimeout:     cfg.APIReadTimeout,
		WriteTimeout:    cfg.APIWriteTimeout,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
		MetricsEnabled:  cfg.MetricsEnabled,
		AccessLog:       cfg.Development(),
	}, handler)

	go func() {
		<-ctx.Done()

		logger.Info("shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("addr", cfg.Addr()))

	if err := app.Listen(cfg.Addr()); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}
