// Package memory is the alert sink used when no spreadsheet is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/salemadams/cash-dash/internal/amqp"
	ports "github.com/salemadams/cash-dash/internal/sheets"
)

var (
	_ ports.AlertSink   = (*Sink)(nil)
	_ ports.AlertLister = (*Sink)(nil)
)

type Sink struct {
	mu    sync.Mutex
	items []amqp.BudgetAlertMessage
	max   int
}

// New keeps at most max alerts, dropping the oldest; max <= 0 keeps all.
func New(max int) *Sink {
	return &Sink{max: max}
}

// AppendAlert stores the alert and returns a synthetic row reference.
func (s *Sink) AppendAlert(_ context.Context, msg *amqp.BudgetAlertMessage) (string, error) {
	if msg == nil {
		return "", errors.New("nil alert")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *msg)
	if s.max > 0 && len(s.items) > s.max {
		s.items = s.items[len(s.items)-s.max:]
	}
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// ListAlerts returns the stored alerts, oldest first.
func (s *Sink) ListAlerts(_ context.Context) ([]amqp.BudgetAlertMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]amqp.BudgetAlertMessage(nil), s.items...), nil
}
