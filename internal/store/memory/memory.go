package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salemadams/cash-dash/internal/core"
	"github.com/salemadams/cash-dash/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	txs     []core.Transaction
	budgets []core.Budget
	nextID  int64
	alerted map[alertKey]struct{}
	now     func() time.Time
}

type alertKey struct {
	budgetID int64
	month    string
}

var _ store.Store = (*Store)(nil)

func New(seed store.Seed) *Store {
	s := &Store{
		txs:     append([]core.Transaction(nil), seed.Transactions...),
		budgets: append([]core.Budget(nil), seed.Budgets...),
		nextID:  1,
		alerted: make(map[alertKey]struct{}),
		now:     time.Now,
	}
	for _, b := range s.budgets {
		if b.ID >= s.nextID {
			s.nextID = b.ID + 1
		}
	}
	return s
}

// NewFromFile seeds the store from a db.json document; a missing file gives
// an empty store.
func NewFromFile(path string) (*Store, error) {
	seed, err := store.LoadSeed(path)
	if err != nil {
		return nil, err
	}
	return New(seed), nil
}

func (s *Store) ListTransactions(_ context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return q.Apply(s.txs), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.txIndex(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return s.txs[i], nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	} else if s.txIndex(tx.ID) >= 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, store.ErrConflict)
	}
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(tx.ID)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, store.ErrNotFound)
	}
	s.txs[i] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, month string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if month != "" {
		return core.FilterActive(s.budgets, month), nil
	}
	return append([]core.Budget{}, s.budgets...), nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.budgetIndex(id)
	if i < 0 {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, store.ErrNotFound)
	}
	return s.budgets[i], nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextID
	s.nextID++
	b = store.Stamp(b, s.now(), true)
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(b.ID)
	if i < 0 {
		return core.Budget{}, fmt.Errorf("budget %d: %w", b.ID, store.ErrNotFound)
	}
	b.CreatedAt = s.budgets[i].CreatedAt
	b = store.Stamp(b, s.now(), false)
	s.budgets[i] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.budgetIndex(id)
	if i < 0 {
		return fmt.Errorf("budget %d: %w", id, store.ErrNotFound)
	}
	s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
	return nil
}

func (s *Store) RecordAlert(_ context.Context, budgetID int64, month string, _ float64, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := alertKey{budgetID, month}
	if _, ok := s.alerted[k]; ok {
		return false, nil
	}
	s.alerted[k] = struct{}{}
	return true, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) txIndex(id string) int {
	for i := range s.txs {
		if s.txs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) budgetIndex(id int64) int {
	for i := range s.budgets {
		if s.budgets[i].ID == id {
			return i
		}
	}
	return -1
}
