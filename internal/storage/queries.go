package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/salemadams/cash-dash/internal/core"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const transactionColumns = `id, amount, date_raw, date_numeric, description, merchant, payment_method, type, category`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		tx       core.Transaction
		raw      string
		numeric  bool
		category sql.NullString
	)
	err := row.Scan(&tx.ID, &tx.Amount, &raw, &numeric, &tx.Description, &tx.Merchant, &tx.PaymentMethod, &tx.Type, &category)
	if err != nil {
		return tx, err
	}
	tx.Date = core.RestoreDate(raw, numeric)
	tx.Category = category.String
	return tx, nil
}

type ListTransactionsParams struct {
	FromMs *int64
	ToMs   *int64
	Limit  int
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if arg.FromMs != nil {
		where = append(where, "date_ms >= ?")
		args = append(args, *arg.FromMs)
	}
	if arg.ToMs != nil {
		where = append(where, "date_ms <= ?")
		args = append(args, *arg.ToMs)
	}
	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date_ms ASC, rowid ASC"
	if arg.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, arg.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, tx)
	}
	return items, rows.Err()
}

func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	return scanTransaction(row)
}

func transactionArgs(tx core.Transaction) []any {
	var category sql.NullString
	if tx.Category != "" {
		category = sql.NullString{String: tx.Category, Valid: true}
	}
	return []any{
		tx.Amount, tx.Date.String(), tx.Date.IsNumeric(), tx.Date.UnixMilli(),
		tx.Description, tx.Merchant, tx.PaymentMethod, string(tx.Type), category,
	}
}

const insertTransaction = `INSERT INTO transactions (
    id, amount, date_raw, date_numeric, date_ms, description, merchant, payment_method, type, category
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction, append([]any{tx.ID}, transactionArgs(tx)...)...)
	return err
}

const updateTransaction = `UPDATE transactions SET
    amount = ?, date_raw = ?, date_numeric = ?, date_ms = ?, description = ?,
    merchant = ?, payment_method = ?, type = ?, category = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction, append(transactionArgs(tx), tx.ID)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n)
	return n, err
}

const budgetColumns = `id, name, categories, amount, start_month, recurring, rollover, alert_threshold, is_active, created_at, updated_at`

func scanBudget(row scanner) (core.Budget, error) {
	var (
		b    core.Budget
		cats string
	)
	err := row.Scan(&b.ID, &b.Name, &cats, &b.Amount, &b.StartMonth, &b.Recurring, &b.Rollover, &b.AlertThreshold, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal([]byte(cats), &b.Categories); err != nil {
		return b, fmt.Errorf("decode categories of budget %d: %w", b.ID, err)
	}
	if b.Categories == nil {
		b.Categories = []string{}
	}
	return b, nil
}

func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+budgetColumns+" FROM budgets ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (q *Queries) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE id = ?", id))
}

func budgetArgs(b core.Budget) ([]any, error) {
	cats := b.Categories
	if cats == nil {
		cats = []string{}
	}
	encoded, err := json.Marshal(cats)
	if err != nil {
		return nil, err
	}
	return []any{
		b.Name, string(encoded), b.Amount, b.StartMonth, b.Recurring, b.Rollover,
		b.AlertThreshold, b.IsActive, b.CreatedAt, b.UpdatedAt,
	}, nil
}

const insertBudget = `INSERT INTO budgets (
    name, categories, amount, start_month, recurring, rollover, alert_threshold, is_active, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CreateBudget inserts b with a fresh id.
func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	args, err := budgetArgs(b)
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, insertBudget, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const insertBudgetWithID = `INSERT INTO budgets (
    id, name, categories, amount, start_month, recurring, rollover, alert_threshold, is_active, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertBudget keeps b.ID; used when seeding.
func (q *Queries) InsertBudget(ctx context.Context, b core.Budget) error {
	args, err := budgetArgs(b)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, insertBudgetWithID, append([]any{b.ID}, args...)...)
	return err
}

const updateBudget = `UPDATE budgets SET
    name = ?, categories = ?, amount = ?, start_month = ?, recurring = ?, rollover = ?,
    alert_threshold = ?, is_active = ?, created_at = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) (int64, error) {
	args, err := budgetArgs(b)
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, updateBudget, append(args, b.ID)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteBudget(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) CountBudgets(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM budgets").Scan(&n)
	return n, err
}

const insertAlert = `INSERT INTO budget_alerts (budget_id, month, percentage, sent_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (budget_id, month) DO NOTHING`

// InsertAlert reports how many rows were written; zero means a duplicate.
func (q *Queries) InsertAlert(ctx context.Context, budgetID int64, month string, percentage float64, sentAt string) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertAlert, budgetID, month, percentage, sentAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
