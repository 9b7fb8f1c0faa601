// Package services composes the store with the chart and budget
// computations behind the HTTP handlers.
package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/salemadams/cash-dash/internal/budget"
	"github.com/salemadams/cash-dash/internal/cache"
	"github.com/salemadams/cash-dash/internal/charting"
	"github.com/salemadams/cash-dash/internal/core"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/store"
)

// Reader is the part of the store the dashboard reads from.
type Reader interface {
	store.TransactionReader
	store.BudgetReader
}

// Range is an inclusive date range; a zero bound is open.
type Range struct {
	Start time.Time
	End   time.Time
}

// LineQuery describes one line chart.
type LineQuery struct {
	Range
	Interval charting.Interval
	GroupBy  charting.GroupBy
}

// key normalises the query so equal charts share a cache entry.
func (q LineQuery) key() string {
	return fmt.Sprintf("%d|%d|%s|%s", q.Start.UnixMilli(), q.End.UnixMilli(), q.Interval, q.GroupBy)
}

// SummaryQuery narrows the analytics summary by search text and type.
type SummaryQuery struct {
	Range
	Search string
	Type   core.TransactionType
}

type DashboardConfig struct {
	Chart    charting.Options
	CacheTTL time.Duration
	// CacheSize bounds the number of cached line charts.
	CacheSize int
}

type DashboardService struct {
	reader Reader
	alerts *AlertNotifier
	charts *cache.Loader[charting.LineChart]
	opts   charting.Options
	now    func() time.Time
	logger *applog.Logger
}

// NewDashboardService builds the service. alerts may be nil, in which case
// budget reports never notify.
func NewDashboardService(reader Reader, alerts *AlertNotifier, cfg DashboardConfig, logger *applog.Logger) *DashboardService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 200
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		reader: reader,
		alerts: alerts,
		charts: cache.NewLoader[charting.LineChart](size, ttl),
		opts:   cfg.Chart,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentDashboard),
	}
}

// ChartCache exposes the line chart cache so writers and the cleanup
// manager can reach it.
func (s *DashboardService) ChartCache() *cache.Loader[charting.LineChart] {
	return s.charts
}

// LineChart buckets the transactions of q. Results are cached until the
// next write.
func (s *DashboardService) LineChart(ctx context.Context, q LineQuery) (charting.LineChart, error) {
	chart, hit, err := s.charts.Get(ctx, q.key(), func(ctx context.Context) (charting.LineChart, error) {
		txs, err := s.reader.ListTransactions(ctx, store.TransactionQuery{
			Start:    q.Start,
			End:      q.End,
			Interval: q.Interval.Width(),
		})
		if err != nil {
			return charting.LineChart{}, fmt.Errorf("list transactions: %w", err)
		}
		return charting.Bucket(txs, q.Start, q.End, q.Interval, q.GroupBy, s.opts), nil
	})
	if err != nil {
		return charting.LineChart{}, err
	}
	s.logger.DebugContext(ctx, "Line chart served",
		applog.FieldInterval, q.Interval,
		applog.FieldGroupBy, q.GroupBy,
		applog.FieldCacheHit, hit)
	return chart, nil
}

func (s *DashboardService) Doughnut(ctx context.Context, r Range) (charting.Doughnut, error) {
	txs, err := s.reader.ListTransactions(ctx, store.TransactionQuery{Start: r.Start, End: r.End})
	if err != nil {
		return charting.Doughnut{}, fmt.Errorf("list transactions: %w", err)
	}
	return charting.ExpenseDoughnut(txs), nil
}

// Bars compares income and expenses over the last months calendar months.
func (s *DashboardService) Bars(ctx context.Context, months int) (charting.BarChart, error) {
	if months < 1 {
		months = 1
	}
	loc := s.opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := s.now().In(loc)
	first := time.Date(now.Year(), now.Month()-time.Month(months-1), 1, 0, 0, 0, 0, loc)

	txs, err := s.reader.ListTransactions(ctx, store.TransactionQuery{Start: first})
	if err != nil {
		return charting.BarChart{}, fmt.Errorf("list transactions: %w", err)
	}
	return charting.MonthlyBars(txs, months, now, s.opts), nil
}

func (s *DashboardService) Summary(ctx context.Context, q SummaryQuery) (charting.Summary, error) {
	txs, err := s.reader.ListTransactions(ctx, store.TransactionQuery{Start: q.Start, End: q.End})
	if err != nil {
		return charting.Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	return charting.Summarize(core.FilterTransactions(txs, q.Search, q.Type)), nil
}

// monthRange brackets month with a day of slack on both sides. Budget
// matching works on the date's wire prefix, which can disagree with its UTC
// instant near midnight.
func monthRange(month string) (store.TransactionQuery, error) {
	start, err := time.Parse(core.MonthLayout, month)
	if err != nil {
		return store.TransactionQuery{}, core.ErrInvalidMonth
	}
	return store.TransactionQuery{
		Start: start.Add(-24 * time.Hour),
		End:   start.AddDate(0, 1, 0).Add(24 * time.Hour),
	}, nil
}

// monthData loads the budgets active in month and the transactions around it
// concurrently.
func (s *DashboardService) monthData(ctx context.Context, month string) ([]core.Budget, []core.Transaction, error) {
	q, err := monthRange(month)
	if err != nil {
		return nil, nil, err
	}

	var (
		budgets []core.Budget
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if budgets, err = s.reader.ListBudgets(gctx, month); err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if txs, err = s.reader.ListTransactions(gctx, q); err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return budgets, txs, nil
}

// BudgetReport computes the health of month's budgets. Budgets that crossed
// their alert threshold are handed to the notifier.
func (s *DashboardService) BudgetReport(ctx context.Context, month string) (budget.Report, error) {
	if month == "" {
		month = core.CurrentMonth(s.now())
	}
	budgets, txs, err := s.monthData(ctx, month)
	if err != nil {
		return budget.Report{}, err
	}

	report := budget.BuildReport(budgets, txs, month)
	if s.alerts != nil && len(report.Triggers) > 0 {
		s.alerts.Notify(ctx, report)
	}
	return report, nil
}

// BudgetTransactions maps every budget active in month to the transactions
// counting against it.
func (s *DashboardService) BudgetTransactions(ctx context.Context, month string) (map[int64][]core.Transaction, error) {
	if month == "" {
		month = core.CurrentMonth(s.now())
	}
	budgets, txs, err := s.monthData(ctx, month)
	if err != nil {
		return nil, err
	}
	return budget.TransactionsByBudget(core.FilterActive(budgets, month), txs, month), nil
}
