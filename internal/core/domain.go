package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
	Savings TransactionType = "savings"

	// AllTypes is a filter value only; no stored transaction carries it.
	AllTypes TransactionType = "all"
)

// MonthLayout is the YYYY-MM form used for budget start months and month filters.
const MonthLayout = "2006-01"

type (
	TransactionType string

	Transaction struct {
		ID            string          `json:"id"`
		Amount        float64         `json:"amount"`
		Date          TxDate          `json:"date"`
		Description   string          `json:"description"`
		Merchant      string          `json:"merchant"`
		PaymentMethod string          `json:"paymentMethod"`
		Type          TransactionType `json:"type"`
		Category      string          `json:"category,omitempty"`
	}

	Budget struct {
		ID             int64    `json:"id"`
		Name           string   `json:"name"`
		Categories     []string `json:"categories"`
		Amount         float64  `json:"amount"`
		StartMonth     string   `json:"startMonth"`
		Recurring      bool     `json:"recurring"`
		Rollover       bool     `json:"rollover"`
		AlertThreshold float64  `json:"alertThreshold"`
		IsActive       bool     `json:"isActive"`
		CreatedAt      string   `json:"createdAt"`
		UpdatedAt      string   `json:"updatedAt"`
	}
)

var (
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidThreshold   = errors.New("invalid alert threshold")
	ErrEmptyName          = errors.New("empty budget name")
	ErrEmptyDescription   = errors.New("empty description")
	ErrNoCategories       = errors.New("budget needs at least one category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// Valid reports whether t is one of the stored transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Savings:
		return true
	}
	return false
}

// ParseTransactionType accepts any casing; an empty string means AllTypes.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" || t == AllTypes {
		return AllTypes, nil
	}
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// AbsAmount is the magnitude every aggregation works with.
func (t Transaction) AbsAmount() float64 {
	return math.Abs(t.Amount)
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// ActiveFor reports whether the budget applies to month (YYYY-MM).
// Every month filter in the repository goes through this method.
func (b Budget) ActiveFor(month string) bool {
	if !b.IsActive {
		return false
	}
	if b.StartMonth > month {
		return false
	}
	if !b.Recurring && b.StartMonth != month {
		return false
	}
	return true
}

// HasCategory reports whether category is one of the budget's categories.
func (b Budget) HasCategory(category string) bool {
	for _, c := range b.Categories {
		if c == category {
			return true
		}
	}
	return false
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if len(b.Categories) == 0 {
		return ErrNoCategories
	}
	if !(b.Amount > 0) || math.IsInf(b.Amount, 0) {
		return ErrInvalidAmount
	}
	if err := ValidateMonth(b.StartMonth); err != nil {
		return err
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 || math.IsNaN(b.AlertThreshold) {
		return ErrInvalidThreshold
	}
	return nil
}

// FilterActive returns the budgets active for month, preserving order.
func FilterActive(budgets []Budget, month string) []Budget {
	out := make([]Budget, 0, len(budgets))
	for _, b := range budgets {
		if b.ActiveFor(month) {
			out = append(out, b)
		}
	}
	return out
}

// ValidateMonth checks the YYYY-MM form.
func ValidateMonth(month string) error {
	if len(month) != len(MonthLayout) {
		return ErrInvalidMonth
	}
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// CurrentMonth returns now's month as YYYY-MM in UTC.
func CurrentMonth(now time.Time) string {
	return now.UTC().Format(MonthLayout)
}
