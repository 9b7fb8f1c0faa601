package services

import (
	"context"
	"time"

	applog "github.com/salemadams/cash-dash/internal/log"
)

// BudgetWatcher evaluates the current month on a schedule so alerts go out
// even when nobody opens the dashboard.
type BudgetWatcher struct {
	dashboard *DashboardService
	logger    *applog.Logger
}

func NewBudgetWatcher(dashboard *DashboardService, logger *applog.Logger) *BudgetWatcher {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &BudgetWatcher{dashboard: dashboard, logger: logger.WithComponent(applog.ComponentBudget)}
}

// Sweep builds the current month's report and returns how many budgets are
// over their threshold. Notification dedup happens in the alert ledger.
func (w *BudgetWatcher) Sweep(ctx context.Context) (int, error) {
	report, err := w.dashboard.BudgetReport(ctx, "")
	if err != nil {
		return 0, err
	}
	w.logger.InfoContext(ctx, "Budget sweep complete",
		applog.FieldMonth, report.Month,
		"budgets", len(report.Budgets),
		"over_threshold", len(report.Triggers),
		applog.FieldPercentage, report.Health.PercentageUsed)
	return len(report.Triggers), nil
}

// Run sweeps once immediately and then every interval until ctx is done.
func (w *BudgetWatcher) Run(ctx context.Context, interval time.Duration) {
	if _, err := w.Sweep(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Initial budget sweep failed", applog.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic budget sweep failed", applog.FieldError, err)
				continue
			}
			w.logger.DebugContext(ctx, "Next budget sweep scheduled", "next_check", now.Add(interval).Format("15:04:05"))
		}
	}
}
