package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/salemadams/cash-dash/internal/backend"
	"github.com/salemadams/cash-dash/internal/charting"
	"github.com/salemadams/cash-dash/internal/cli"
	"github.com/salemadams/cash-dash/internal/config"
	apphttp "github.com/salemadams/cash-dash/internal/http"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg)
	cli.MustValidate(logger, cfg.Validate)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	factory := backend.NewFactory(logger)
	result, bcfg := cli.InitBackend(ctx, logger, factory, cfg)

	publisher, closePublisher, err := factory.CreatePublisher(ctx, bcfg)
	if err != nil {
		logger.Warn("Failed to initialize AMQP publisher, budget alerts will only be logged", applog.FieldError, err)
		publisher, closePublisher = services.NewLogPublisher(logger), func() error { return nil }
	}

	notifier := services.NewAlertNotifier(result.Store, publisher, logger)
	dashboard := services.NewDashboardService(result.Store, notifier, services.DashboardConfig{
		Chart: charting.Options{
			Location:    cfg.Location(),
			LabelLayout: cfg.ChartLabelLayout,
		},
		CacheTTL:  cfg.CacheTTL,
		CacheSize: cfg.CacheSize,
	}, logger)
	ledger := services.NewLedgerService(result.Store, logger, dashboard.ChartCache())

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:          ":" + cfg.Port,
		FrontendURL:   cfg.FrontendURL,
		RatePerMinute: cfg.RatePerMinute,
		Location:      cfg.Location(),
		MaxBuckets:    cfg.ChartMaxBuckets,
		Ready:         result.Store.Ping,
	}, ledger, dashboard, logger)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting cash-dash server",
			"port", cfg.Port,
			"backend", bcfg.Type,
			"time_zone", cfg.TimeZone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			exitCode = 1
		}
	}

	cli.RunCleanup(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := closePublisher(); err != nil {
			logger.Warn("Failed to close AMQP publisher", applog.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Failed to close data backend", applog.FieldError, err)
		}
	})
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
	logger.Info("Server stopped gracefully")
}
