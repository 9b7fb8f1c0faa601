// Package worker consumes budget alerts and records them in a sink.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/salemadams/cash-dash/internal/amqp"
	"github.com/salemadams/cash-dash/internal/core"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/sheets"
)

// AlertWorker forwards consumed budget alerts to a sink.
type AlertWorker struct {
	sink   sheets.AlertSink
	logger *applog.StructuredLogger
	base   *applog.Logger

	handled atomic.Int64
	dropped atomic.Int64
}

func NewAlertWorker(sink sheets.AlertSink, logger *applog.Logger) *AlertWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentWorker)
	return &AlertWorker{sink: sink, logger: applog.NewStructuredLogger(logger), base: logger}
}

// Prepare lets the sink set itself up before the first alert, for example by
// writing a header row.
func (w *AlertWorker) Prepare(ctx context.Context) error {
	if p, ok := w.sink.(interface{ EnsureHeader(context.Context) error }); ok {
		if err := p.EnsureHeader(ctx); err != nil {
			return fmt.Errorf("prepare alert sink: %w", err)
		}
	}
	return nil
}

// Handle records one alert. Malformed alerts are logged and dropped so they
// are not redelivered; sink failures are returned so the broker requeues.
func (w *AlertWorker) Handle(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	if msg.BudgetID == 0 || core.ValidateMonth(msg.Month) != nil {
		w.dropped.Add(1)
		w.base.WarnContext(ctx, "Dropping malformed budget alert",
			applog.FieldBudgetID, msg.BudgetID,
			applog.FieldMonth, msg.Month)
		return nil
	}

	w.logger.LogBudgetAlert(ctx, "Budget alert received", msg.BudgetID, msg.Name, msg.Month, msg.Percentage, msg.Threshold)

	ref, err := w.sink.AppendAlert(ctx, msg)
	if err != nil {
		w.logger.LogError(ctx, "Failed to record budget alert", err, applog.ComponentSheets, applog.OpAppend,
			applog.NewFields().WithBudget(msg.BudgetID, msg.Name, msg.Month, msg.Percentage, msg.Threshold))
		return fmt.Errorf("append alert: %w", err)
	}

	w.handled.Add(1)
	w.base.InfoContext(ctx, "Budget alert recorded",
		applog.FieldBudgetID, msg.BudgetID,
		applog.FieldSheetsRef, ref)
	return nil
}

// Stats reports how many alerts were recorded and dropped.
func (w *AlertWorker) Stats() (handled, dropped int64) {
	return w.handled.Load(), w.dropped.Load()
}
