package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/salemadams/cash-dash/internal/core"
	"github.com/salemadams/cash-dash/internal/store"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens dbPath, migrates it and, when both tables are
// empty, loads seed.
func NewSQLiteRepository(ctx context.Context, dbPath string, seed store.Seed) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	repo := &SQLiteRepository{db: db, queries: New(db), now: time.Now}
	if err := repo.seed(ctx, seed); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) seed(ctx context.Context, seed store.Seed) error {
	txCount, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return fmt.Errorf("count transactions: %w", err)
	}
	budgetCount, err := r.queries.CountBudgets(ctx)
	if err != nil {
		return fmt.Errorf("count budgets: %w", err)
	}
	if txCount > 0 || budgetCount > 0 {
		return nil
	}
	if len(seed.Transactions) == 0 && len(seed.Budgets) == 0 {
		return nil
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer dbtx.Rollback()

	q := r.queries.WithTx(dbtx)
	for _, t := range seed.Transactions {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if err := q.InsertTransaction(ctx, t); err != nil {
			return fmt.Errorf("seed transaction %s: %w", t.ID, err)
		}
	}
	for _, b := range seed.Budgets {
		if err := q.InsertBudget(ctx, b); err != nil {
			return fmt.Errorf("seed budget %d: %w", b.ID, err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	slog.InfoContext(ctx, "Database seeded",
		"transactions", len(seed.Transactions),
		"budgets", len(seed.Budgets))
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	arg := ListTransactionsParams{Limit: q.Limit}
	if !q.Start.IsZero() {
		from := q.From().UnixMilli()
		arg.FromMs = &from
	}
	if !q.End.IsZero() {
		to := q.End.UnixMilli()
		arg.ToMs = &to
	}
	txs, err := r.queries.ListTransactions(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return tx, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return tx, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := r.queries.InsertTransaction(ctx, tx); err != nil {
		if isConstraintViolation(err) {
			return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, store.ErrConflict)
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"type", tx.Type,
		"amount", tx.Amount)
	return tx, nil
}

// isConstraintViolation reports whether err is a primary key or unique
// constraint failure.
func isConstraintViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	n, err := r.queries.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	if n == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, store.ErrNotFound)
	}
	return tx, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, month string) ([]core.Budget, error) {
	budgets, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if month != "" {
		return core.FilterActive(budgets, month), nil
	}
	return budgets, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	b, err := r.queries.GetBudget(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("budget %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return b, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b = store.Stamp(b, r.now(), true)
	id, err := r.queries.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	b.ID = id
	slog.InfoContext(ctx, "Budget saved to SQLite", "id", b.ID, "name", b.Name)
	return b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	existing, err := r.GetBudget(ctx, b.ID)
	if err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = existing.CreatedAt
	b = store.Stamp(b, r.now(), false)
	if _, err := r.queries.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	return b, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteBudget(ctx, id)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("budget %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) RecordAlert(ctx context.Context, budgetID int64, month string, percentage float64, at time.Time) (bool, error) {
	n, err := r.queries.InsertAlert(ctx, budgetID, month, percentage, at.UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("record alert for budget %d: %w", budgetID, err)
	}
	return n > 0, nil
}
