package amqp

import (
	"encoding/json"
	"time"

	"github.com/salemadams/cash-dash/internal/budget"
)

// BudgetAlertMessage announces that a budget reached its alert threshold for
// a month. It is self-contained so the worker never reads the store.
type BudgetAlertMessage struct {
	BudgetID   int64     `json:"budgetId"`
	Name       string    `json:"name"`
	Month      string    `json:"month"`
	Spent      float64   `json:"spent"`
	Amount     float64   `json:"amount"`
	Percentage float64   `json:"percentage"`
	Threshold  float64   `json:"threshold"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewBudgetAlertMessage builds the alert for a budget status.
func NewBudgetAlertMessage(month string, s budget.BudgetStatus, at time.Time) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		BudgetID:   s.Budget.ID,
		Name:       s.Budget.Name,
		Month:      month,
		Spent:      s.Spent,
		Amount:     s.Budget.Amount,
		Percentage: s.Percentage,
		Threshold:  s.Budget.AlertThreshold,
		Timestamp:  at.UTC(),
	}
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
