package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/salemadams/cash-dash/internal/amqp"
	"github.com/salemadams/cash-dash/internal/backend"
	"github.com/salemadams/cash-dash/internal/cli"
	"github.com/salemadams/cash-dash/internal/config"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg)
	logger.Info("Starting alert-worker")
	cli.MustValidate(logger, cfg.ValidateWorker)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	// Alerts go to the spreadsheet when one is configured, memory otherwise.
	factory := backend.NewFactory(logger)
	sink, err := factory.CreateSink(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize alert sink", applog.FieldError, err)
		os.Exit(1)
	}

	alertWorker := worker.NewAlertWorker(sink, logger)
	if err := alertWorker.Prepare(ctx); err != nil {
		// Appends still work without a header row.
		logger.Error("Failed to prepare alert sink", applog.FieldError, err)
	}

	amqpClient, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqp.DefaultDialOptions(), logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	go func() {
		if err := amqpClient.ConsumeBudgetAlerts(ctx, alertWorker.Handle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
		cancel()
	}()

	<-ctx.Done()

	cli.RunCleanup(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", applog.FieldError, err)
		}
		handled, dropped := alertWorker.Stats()
		logger.Info("Alert worker stopped", "handled", handled, "dropped", dropped)
	})
}
