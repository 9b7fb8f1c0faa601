package budget

import "github.com/salemadams/cash-dash/internal/core"

// BudgetStatus is one budget's standing for a month.
type BudgetStatus struct {
	Budget         core.Budget `json:"budget"`
	Spent          float64     `json:"spent"`
	Remaining      float64     `json:"remaining"`
	Percentage     float64     `json:"percentage"`
	Color          ColorTag    `json:"color"`
	Class          string      `json:"class"`
	AlertTriggered bool        `json:"alertTriggered"`
}

// Status derives a budget's standing from what it spent. A zero alert
// threshold never triggers.
func Status(b core.Budget, spent float64) BudgetStatus {
	s := BudgetStatus{Budget: b, Spent: spent, Remaining: b.Amount - spent}
	if b.Amount > 0 {
		s.Percentage = spent / b.Amount * 100
	}
	s.Color = BarColor(s.Percentage)
	s.Class = s.Color.Class()
	s.AlertTriggered = b.AlertThreshold > 0 && s.Percentage >= b.AlertThreshold
	return s
}

type Report struct {
	Month    string         `json:"month"`
	Health   Health         `json:"health"`
	Color    ColorTag       `json:"color"`
	Budgets  []BudgetStatus `json:"budgets"`
	Triggers []int64        `json:"alerts"`
}

// BuildReport keeps the budgets active for month, groups txs under them and
// returns the aggregate plus one status per active budget, in input order.
func BuildReport(budgets []core.Budget, txs []core.Transaction, month string) Report {
	active := core.FilterActive(budgets, month)
	byID := TransactionsByBudget(active, txs, month)

	r := Report{
		Month:    month,
		Health:   AggregateHealth(active, byID),
		Budgets:  make([]BudgetStatus, 0, len(active)),
		Triggers: []int64{},
	}
	r.Color = BarColor(r.Health.PercentageUsed)
	for _, b := range active {
		var spent float64
		for _, tx := range byID[b.ID] {
			spent += tx.AbsAmount()
		}
		st := Status(b, spent)
		if st.AlertTriggered {
			r.Triggers = append(r.Triggers, b.ID)
		}
		r.Budgets = append(r.Budgets, st)
	}
	return r
}
