package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/salemadams/cash-dash/internal/core"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/store"
)

// ErrValidation wraps every input error a write rejects.
var ErrValidation = errors.New("validation failed")

// Ledger is the read and write side of the store the CRUD endpoints use.
type Ledger interface {
	store.TransactionReader
	store.TransactionWriter
	store.BudgetReader
	store.BudgetWriter
}

// Purger drops derived data that a write invalidates.
type Purger interface {
	Purge() int
}

// LedgerService validates writes, applies them to the store and purges
// derived caches.
type LedgerService struct {
	store   Ledger
	purgers []Purger
	logger  *applog.Logger
}

func NewLedgerService(s Ledger, logger *applog.Logger, purgers ...Purger) *LedgerService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &LedgerService{store: s, purgers: purgers, logger: logger.WithComponent(applog.ComponentStorage)}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func (s *LedgerService) purge(ctx context.Context, op string) {
	dropped := 0
	for _, p := range s.purgers {
		dropped += p.Purge()
	}
	s.logger.DebugContext(ctx, "Caches purged after write", applog.FieldOperation, op, "dropped", dropped)
}

func (s *LedgerService) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, q)
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, invalid(err)
	}
	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.purge(ctx, applog.OpCreate)
	s.logger.InfoContext(ctx, "Transaction created", applog.FieldTransactionID, created.ID)
	return created, nil
}

// UpdateTransaction replaces the transaction id with tx.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	tx.ID = id
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, invalid(err)
	}
	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.purge(ctx, applog.OpUpdate)
	return updated, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.purge(ctx, applog.OpDelete)
	s.logger.InfoContext(ctx, "Transaction deleted", applog.FieldTransactionID, id)
	return nil
}

// ListBudgets returns every budget, or those active in month.
func (s *LedgerService) ListBudgets(ctx context.Context, month string) ([]core.Budget, error) {
	if month != "" {
		if err := core.ValidateMonth(month); err != nil {
			return nil, invalid(err)
		}
	}
	return s.store.ListBudgets(ctx, month)
}

func (s *LedgerService) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return s.store.GetBudget(ctx, id)
}

func (s *LedgerService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, invalid(err)
	}
	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.purge(ctx, applog.OpCreate)
	s.logger.InfoContext(ctx, "Budget created", applog.FieldBudgetID, created.ID, applog.FieldBudgetName, created.Name)
	return created, nil
}

func (s *LedgerService) UpdateBudget(ctx context.Context, id int64, b core.Budget) (core.Budget, error) {
	b.ID = id
	if err := b.Validate(); err != nil {
		return core.Budget{}, invalid(err)
	}
	updated, err := s.store.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.purge(ctx, applog.OpUpdate)
	return updated, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, id int64) error {
	if err := s.store.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.purge(ctx, applog.OpDelete)
	s.logger.InfoContext(ctx, "Budget deleted", applog.FieldBudgetID, id)
	return nil
}
