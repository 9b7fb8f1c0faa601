package services

import (
	"context"
	"time"

	"github.com/salemadams/cash-dash/internal/amqp"
	"github.com/salemadams/cash-dash/internal/budget"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/store"
)

// AlertPublisher delivers a budget alert, typically to the message broker.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// AlertNotifier publishes each triggered budget at most once per month.
type AlertNotifier struct {
	ledger    store.AlertLedger
	publisher AlertPublisher
	now       func() time.Time
	logger    *applog.StructuredLogger
}

func NewAlertNotifier(ledger store.AlertLedger, publisher AlertPublisher, logger *applog.Logger) *AlertNotifier {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &AlertNotifier{
		ledger:    ledger,
		publisher: publisher,
		now:       time.Now,
		logger:    applog.NewStructuredLogger(logger.WithComponent(applog.ComponentBudget)),
	}
}

// Notify records and publishes the triggered budgets of report and returns
// how many alerts went out. Failures are logged; the report is served
// regardless.
func (n *AlertNotifier) Notify(ctx context.Context, report budget.Report) int {
	sent := 0
	for _, st := range report.Budgets {
		if !st.AlertTriggered {
			continue
		}
		at := n.now()
		first, err := n.ledger.RecordAlert(ctx, st.Budget.ID, report.Month, st.Percentage, at)
		if err != nil {
			n.logger.LogError(ctx, "Failed to record budget alert", err, applog.ComponentBudget, applog.OpCreate,
				applog.NewFields().WithBudget(st.Budget.ID, st.Budget.Name, report.Month, st.Percentage, st.Budget.AlertThreshold))
			continue
		}
		if !first {
			continue
		}

		msg := amqp.NewBudgetAlertMessage(report.Month, st, at)
		if err := n.publisher.PublishBudgetAlert(ctx, msg); err != nil {
			n.logger.LogError(ctx, "Failed to publish budget alert", err, applog.ComponentAMQP, applog.OpPublish,
				applog.NewFields().WithBudget(st.Budget.ID, st.Budget.Name, report.Month, st.Percentage, st.Budget.AlertThreshold))
			continue
		}
		n.logger.LogBudgetAlert(ctx, "Budget alert triggered", st.Budget.ID, st.Budget.Name, report.Month, st.Percentage, st.Budget.AlertThreshold)
		sent++
	}
	return sent
}

// LogPublisher stands in for the broker when none is configured: alerts are
// written to the log only.
type LogPublisher struct {
	logger *applog.StructuredLogger
}

func NewLogPublisher(logger *applog.Logger) *LogPublisher {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &LogPublisher{logger: applog.NewStructuredLogger(logger)}
}

func (p *LogPublisher) PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	p.logger.LogBudgetAlert(ctx, "Budget alert (no broker configured)", msg.BudgetID, msg.Name, msg.Month, msg.Percentage, msg.Threshold)
	return nil
}
