// Package store defines the persistence ports shared by the memory and
// SQLite backends, plus the query semantics both of them apply.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/salemadams/cash-dash/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Ports for the data store.
type (
	TransactionReader interface {
		// ListTransactions returns matching transactions, oldest first.
		ListTransactions(ctx context.Context, q TransactionQuery) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	}

	TransactionWriter interface {
		// CreateTransaction assigns an id when tx has none.
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	BudgetReader interface {
		// ListBudgets returns every budget, or only those active for month
		// when month is non-empty.
		ListBudgets(ctx context.Context, month string) ([]core.Budget, error)
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
	}

	BudgetWriter interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, id int64) error
	}

	// AlertLedger remembers which budget alerts went out.
	AlertLedger interface {
		// RecordAlert returns false when the budget already alerted in month.
		RecordAlert(ctx context.Context, budgetID int64, month string, percentage float64, at time.Time) (bool, error)
	}

	Store interface {
		TransactionReader
		TransactionWriter
		BudgetReader
		BudgetWriter
		AlertLedger
		Ping(ctx context.Context) error
		Close() error
	}
)

// TransactionQuery selects transactions by date. Start is padded back by
// Interval so the first bucket of a chart sees its whole window; End is
// inclusive. Zero values disable a bound, a non-positive Limit returns
// everything.
type TransactionQuery struct {
	Start    time.Time
	End      time.Time
	Interval time.Duration
	Limit    int
}

// From is the effective lower bound.
func (q TransactionQuery) From() time.Time {
	if q.Start.IsZero() {
		return time.Time{}
	}
	return q.Start.Add(-q.Interval)
}

// Match reports whether tx falls inside the query range.
func (q TransactionQuery) Match(tx core.Transaction) bool {
	ts := tx.Date.Time()
	if !q.Start.IsZero() && ts.Before(q.From()) {
		return false
	}
	if !q.End.IsZero() && ts.After(q.End) {
		return false
	}
	return true
}

// Apply filters, sorts and caps txs in place of a database query.
func (q TransactionQuery) Apply(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if q.Match(tx) {
			out = append(out, tx)
		}
	}
	SortByDate(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// SortByDate orders txs oldest first; equal dates keep their order.
func SortByDate(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Time().Before(txs[j].Date.Time())
	})
}

// Seed is the db.json document the stores can start from.
type Seed struct {
	Transactions []core.Transaction `json:"transactions"`
	Budgets      []core.Budget      `json:"budgets"`
}

// LoadSeed reads a seed file. A missing file yields an empty seed.
func LoadSeed(path string) (Seed, error) {
	var s Seed
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read seed file: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return s, nil
}

// Stamp sets the audit timestamps of a budget being written.
func Stamp(b core.Budget, now time.Time, created bool) core.Budget {
	ts := now.UTC().Format(time.RFC3339)
	if created || b.CreatedAt == "" {
		b.CreatedAt = ts
	}
	b.UpdatedAt = ts
	return b
}
