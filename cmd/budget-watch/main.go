package main

import (
	"context"
	"time"

	"github.com/salemadams/cash-dash/internal/backend"
	"github.com/salemadams/cash-dash/internal/charting"
	"github.com/salemadams/cash-dash/internal/cli"
	"github.com/salemadams/cash-dash/internal/config"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg)
	logger.Info("Starting budget-watch")
	cli.MustValidate(logger, cfg.ValidateWatcher)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	factory := backend.NewFactory(logger)
	result, bcfg := cli.InitBackend(ctx, logger, factory, cfg)
	if bcfg.Type == backend.MemoryBackend {
		logger.Warn("budget-watch on the memory backend only sees the seed file, not the server's writes")
	}

	publisher, closePublisher, err := factory.CreatePublisher(ctx, bcfg)
	if err != nil {
		logger.Warn("Failed to initialize AMQP publisher, budget alerts will only be logged", applog.FieldError, err)
		publisher, closePublisher = services.NewLogPublisher(logger), func() error { return nil }
	}

	notifier := services.NewAlertNotifier(result.Store, publisher, logger)
	dashboard := services.NewDashboardService(result.Store, notifier, services.DashboardConfig{
		Chart: charting.Options{Location: cfg.Location(), LabelLayout: cfg.ChartLabelLayout},
	}, logger)

	logger.Info("Budget watch configured", "interval", cfg.BudgetCheckInterval, "backend", bcfg.Type)
	services.NewBudgetWatcher(dashboard, logger).Run(ctx, cfg.BudgetCheckInterval)

	cli.RunCleanup(logger, 10*time.Second, func(context.Context) {
		if err := closePublisher(); err != nil {
			logger.Warn("Failed to close AMQP publisher", applog.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Failed to close data backend", applog.FieldError, err)
		}
	})
}
