package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/salemadams/cash-dash/internal/core"
	"github.com/salemadams/cash-dash/internal/store"
)

const seedDoc = `{
  "transactions": [
    {"id": "t2", "amount": -30, "date": "2024-04-01", "description": "Market", "merchant": "Coop", "paymentMethod": "card", "type": "expense", "category": "Food"},
    {"id": "t1", "amount": -50, "date": "2024-03-05", "description": "Groceries", "merchant": "Coop", "paymentMethod": "card", "type": "expense", "category": "Food"},
    {"id": "t3", "amount": 2500, "date": 1709856000000, "description": "Salary", "merchant": "ACME", "paymentMethod": "transfer", "type": "income"}
  ],
  "budgets": [
    {"id": 1, "name": "Food", "categories": ["Food"], "amount": 100, "startMonth": "2024-03", "recurring": false, "rollover": false, "alertThreshold": 80, "isActive": true, "createdAt": "2024-03-01T00:00:00Z", "updatedAt": "2024-03-01T00:00:00Z"},
    {"id": 7, "name": "Fun", "categories": ["Entertainment"], "amount": 60, "startMonth": "2024-01", "recurring": true, "rollover": false, "alertThreshold": 90, "isActive": true, "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z"}
  ]
}`

func seeded(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte(seedDoc), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestNewFromFileMissingIsEmpty(t *testing.T) {
	s, err := NewFromFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	txs, _ := s.ListTransactions(context.Background(), store.TransactionQuery{})
	if len(txs) != 0 {
		t.Fatalf("expected empty store, got %d", len(txs))
	}
}

func TestListTransactionsSortsAndFilters(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	all, err := s.ListTransactions(ctx, store.TransactionQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "t1" || all[1].ID != "t3" || all[2].ID != "t2" {
		t.Fatalf("unexpected order: %v", ids(all))
	}

	q := store.TransactionQuery{
		Start:    time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Interval: 24 * time.Hour,
	}
	got, _ := s.ListTransactions(ctx, q)
	if len(got) != 3 {
		t.Fatalf("padded start and inclusive end should keep all three, got %v", ids(got))
	}

	q.Interval = 0
	got, _ = s.ListTransactions(ctx, q)
	if len(got) != 2 || got[0].ID != "t3" {
		t.Fatalf("unpadded range = %v", ids(got))
	}

	got, _ = s.ListTransactions(ctx, store.TransactionQuery{Limit: 1})
	if len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("limit should keep the oldest row, got %v", ids(got))
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	created, err := s.CreateTransaction(ctx, core.Transaction{Amount: -5, Date: core.ParseDate("2024-03-07"), Description: "Coffee", Type: core.Expense})
	if err != nil || created.ID == "" {
		t.Fatalf("create: %+v %v", created, err)
	}
	if _, err := s.CreateTransaction(ctx, core.Transaction{ID: "t1"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate id: err = %v, want ErrConflict", err)
	}

	created.Amount = -6
	if _, err := s.UpdateTransaction(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetTransaction(ctx, created.ID)
	if err != nil || got.Amount != -6 {
		t.Fatalf("get after update: %+v %v", got, err)
	}

	if err := s.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateTransaction(ctx, core.Transaction{ID: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListBudgetsByMonth(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	cases := map[string][]int64{
		"":        {1, 7},
		"2024-03": {1, 7},
		"2024-04": {7},
		"2023-12": {},
	}
	for month, want := range cases {
		got, err := s.ListBudgets(ctx, month)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(want) {
			t.Fatalf("month %q: got %d budgets, want %d", month, len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i] {
				t.Fatalf("month %q: got id %d at %d, want %d", month, got[i].ID, i, want[i])
			}
		}
	}
}

func TestBudgetLifecycle(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	b, err := s.CreateBudget(ctx, core.Budget{Name: "Rent", Categories: []string{"Housing"}, Amount: 900, StartMonth: "2024-03", IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	if b.ID != 8 {
		t.Fatalf("id = %d, want 8", b.ID)
	}
	if b.CreatedAt != "2024-03-10T09:00:00Z" || b.UpdatedAt != b.CreatedAt {
		t.Fatalf("timestamps = %q %q", b.CreatedAt, b.UpdatedAt)
	}

	s.now = func() time.Time { return time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC) }
	b.Amount = 950
	b.CreatedAt = ""
	updated, err := s.UpdateBudget(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	if updated.CreatedAt != "2024-03-10T09:00:00Z" || updated.UpdatedAt != "2024-03-11T09:00:00Z" {
		t.Fatalf("update timestamps = %q %q", updated.CreatedAt, updated.UpdatedAt)
	}

	if err := s.DeleteBudget(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetBudget(ctx, b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func TestRecordAlertOncePerMonth(t *testing.T) {
	s := New(store.Seed{})
	ctx := context.Background()
	now := time.Now()

	first, err := s.RecordAlert(ctx, 1, "2024-03", 85, now)
	if err != nil || !first {
		t.Fatalf("first alert: %v %v", first, err)
	}
	if again, _ := s.RecordAlert(ctx, 1, "2024-03", 95, now); again {
		t.Fatal("second alert in the same month should be suppressed")
	}
	if next, _ := s.RecordAlert(ctx, 1, "2024-04", 85, now); !next {
		t.Fatal("a new month should alert again")
	}
}
