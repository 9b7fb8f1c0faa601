// Package budget computes spending against budgets for a given month.
package budget

import (
	"strings"

	"github.com/salemadams/cash-dash/internal/core"
)

// Percentage tiers for the progress bar.
const (
	ThresholdCritical = 90.0
	ThresholdWarning  = 80.0
)

type ColorTag string

const (
	Critical ColorTag = "critical"
	Warning  ColorTag = "warning"
	Safe     ColorTag = "safe"
)

// Class is the progress bar CSS class for the tag; safe bars use the default.
func (c ColorTag) Class() string {
	switch c {
	case Critical:
		return "bg-red-600"
	case Warning:
		return "bg-yellow-600"
	}
	return ""
}

func BarColor(percentage float64) ColorTag {
	switch {
	case percentage >= ThresholdCritical:
		return Critical
	case percentage >= ThresholdWarning:
		return Warning
	}
	return Safe
}

// Health is the aggregate view over every active budget of a month.
type Health struct {
	TotalBudgeted  float64 `json:"totalBudgeted"`
	TotalSpent     float64 `json:"totalSpent"`
	TotalRemaining float64 `json:"totalRemaining"`
	PercentageUsed float64 `json:"percentageUsed"`
}

// counts reports whether tx is an expense of the budget in month. The month
// check is a prefix match on the date's wire form.
func counts(b core.Budget, tx core.Transaction, month string) bool {
	return tx.Type == core.Expense &&
		b.HasCategory(tx.Category) &&
		strings.HasPrefix(tx.Date.String(), month)
}

// SpentForBudget sums the absolute amounts of b's expenses in month.
func SpentForBudget(b core.Budget, txs []core.Transaction, month string) float64 {
	var spent float64
	for _, tx := range txs {
		if counts(b, tx, month) {
			spent += tx.AbsAmount()
		}
	}
	return spent
}

// TransactionsByBudget maps each budget id to the transactions that count
// against it in month. Every budget gets an entry, possibly empty.
func TransactionsByBudget(budgets []core.Budget, txs []core.Transaction, month string) map[int64][]core.Transaction {
	out := make(map[int64][]core.Transaction, len(budgets))
	for _, b := range budgets {
		matched := []core.Transaction{}
		for _, tx := range txs {
			if counts(b, tx, month) {
				matched = append(matched, tx)
			}
		}
		out[b.ID] = matched
	}
	return out
}

// AggregateHealth totals active budgets against their transactions. Budgets
// missing from byID spent nothing. Overspending is reported as a negative
// remainder.
func AggregateHealth(active []core.Budget, byID map[int64][]core.Transaction) Health {
	var h Health
	for _, b := range active {
		h.TotalBudgeted += b.Amount
		for _, tx := range byID[b.ID] {
			h.TotalSpent += tx.AbsAmount()
		}
	}
	h.TotalRemaining = h.TotalBudgeted - h.TotalSpent
	if h.TotalBudgeted > 0 {
		h.PercentageUsed = h.TotalSpent / h.TotalBudgeted * 100
	}
	return h
}
