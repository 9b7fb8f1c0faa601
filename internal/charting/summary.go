package charting

import (
	"math"
	"sort"
	"time"

	"github.com/salemadams/cash-dash/internal/core"
)

// Uncategorized labels expenses that carry no category.
const Uncategorized = "Uncategorized"

// Totals mirrors the dashboard summary cards. Income and expenses are signed
// sums as stored; net subtracts the magnitude of expenses.
type Totals struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}

func CalculateTotals(txs []core.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Income += tx.Amount
		case core.Expense:
			t.Expenses += tx.Amount
		}
	}
	t.Net = t.Income - math.Abs(t.Expenses)
	return t
}

// AggregateByType sums absolute amounts per transaction type.
func AggregateByType(txs []core.Transaction) map[core.TransactionType]float64 {
	out := make(map[core.TransactionType]float64)
	for _, tx := range txs {
		out[tx.Type] += tx.AbsAmount()
	}
	return out
}

// Slice is one segment of a doughnut chart.
type Slice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

type Doughnut struct {
	Total  float64 `json:"total"`
	Slices []Slice `json:"slices"`
}

// ExpenseDoughnut splits expenses by category, largest first. Ties break on
// label so the order never depends on map iteration.
func ExpenseDoughnut(txs []core.Transaction) Doughnut {
	sums := make(map[string]float64)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		cat := tx.Category
		if cat == "" {
			cat = Uncategorized
		}
		sums[cat] += tx.AbsAmount()
	}

	d := Doughnut{Slices: make([]Slice, 0, len(sums))}
	for label, v := range sums {
		d.Slices = append(d.Slices, Slice{Label: label, Value: v, Color: ColorFor(label)})
	}
	sort.Slice(d.Slices, func(i, j int) bool {
		if d.Slices[i].Value != d.Slices[j].Value {
			return d.Slices[i].Value > d.Slices[j].Value
		}
		return d.Slices[i].Label < d.Slices[j].Label
	})
	for _, s := range d.Slices {
		d.Total += s.Value
	}
	return d
}

// BarChart compares income and expenses per calendar month.
type BarChart struct {
	Labels []string `json:"labels"`
	Series []Series `json:"datasets"`
}

const barLabelLayout = "Jan 2006"

// MonthlyBars covers the months calendar months ending with now's month,
// oldest first. Savings are left out.
func MonthlyBars(txs []core.Transaction, months int, now time.Time, opts Options) BarChart {
	if months < 1 {
		months = 1
	}
	loc := opts.location()
	now = now.In(loc)
	first := time.Date(now.Year(), now.Month()-time.Month(months-1), 1, 0, 0, 0, 0, loc)

	chart := BarChart{Labels: make([]string, months)}
	income := Series{Key: string(core.Income), Label: Capitalize(string(core.Income)), Color: ColorFor(string(core.Income)), Values: make([]float64, months)}
	expense := Series{Key: string(core.Expense), Label: Capitalize(string(core.Expense)), Color: ColorFor(string(core.Expense)), Values: make([]float64, months)}

	for i := 0; i < months; i++ {
		chart.Labels[i] = first.AddDate(0, i, 0).Format(barLabelLayout)
	}
	for _, tx := range sortByDate(txs) {
		ts := tx.Date.Time().In(loc)
		idx := (ts.Year()-first.Year())*12 + int(ts.Month()) - int(first.Month())
		if idx < 0 || idx >= months {
			continue
		}
		switch tx.Type {
		case core.Income:
			income.Values[idx] += tx.AbsAmount()
		case core.Expense:
			expense.Values[idx] += tx.AbsAmount()
		}
	}
	chart.Series = []Series{income, expense}
	return chart
}

// Summary is the analytics header: totals plus a few derived figures.
type Summary struct {
	Totals
	Savings        float64 `json:"savings"`
	Count          int     `json:"count"`
	AverageExpense float64 `json:"averageExpense"`
	TopCategory    string  `json:"topCategory,omitempty"`
}

func Summarize(txs []core.Transaction) Summary {
	s := Summary{Totals: CalculateTotals(txs), Count: len(txs)}
	byType := AggregateByType(txs)
	s.Savings = byType[core.Savings]

	var expenses int
	for _, tx := range txs {
		if tx.Type == core.Expense {
			expenses++
		}
	}
	if expenses > 0 {
		s.AverageExpense = byType[core.Expense] / float64(expenses)
	}
	if d := ExpenseDoughnut(txs); len(d.Slices) > 0 {
		s.TopCategory = d.Slices[0].Label
	}
	return s
}
