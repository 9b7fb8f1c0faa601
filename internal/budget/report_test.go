package budget

import (
	"testing"

	"github.com/salemadams/cash-dash/internal/core"
)

func TestStatus(t *testing.T) {
	b := core.Budget{ID: 4, Amount: 200, AlertThreshold: 80}

	s := Status(b, 170)
	if s.Percentage != 85 || s.Remaining != 30 {
		t.Fatalf("status = %+v", s)
	}
	if s.Color != Warning || s.Class != "bg-yellow-600" {
		t.Fatalf("color = %q class = %q", s.Color, s.Class)
	}
	if !s.AlertTriggered {
		t.Fatal("85% of a budget with an 80% threshold should alert")
	}

	if s := Status(b, 100); s.AlertTriggered || s.Color != Safe {
		t.Fatalf("status at 50%% = %+v", s)
	}

	b.AlertThreshold = 0
	if s := Status(b, 400); s.AlertTriggered {
		t.Fatal("a zero threshold never alerts")
	}
	if s := Status(core.Budget{}, 10); s.Percentage != 0 {
		t.Fatalf("zero amount should give zero percentage, got %v", s.Percentage)
	}
}

func TestBuildReport(t *testing.T) {
	budgets := []core.Budget{
		{ID: 1, Name: "Food", Categories: []string{"Food"}, Amount: 100, StartMonth: "2024-01", Recurring: true, IsActive: true, AlertThreshold: 80},
		{ID: 2, Name: "Trip", Categories: []string{"Travel"}, Amount: 500, StartMonth: "2024-02", IsActive: true, AlertThreshold: 80},
		{ID: 3, Name: "Paused", Categories: []string{"Food"}, Amount: 50, StartMonth: "2024-01", Recurring: true, IsActive: false},
		{ID: 4, Name: "Fun", Categories: []string{"Entertainment"}, Amount: 300, StartMonth: "2024-03", IsActive: true},
	}
	txs := []core.Transaction{
		expense(-92, "Food", "2024-03-03"),
		expense(-8, "Entertainment", "2024-03-10"),
		expense(-300, "Travel", "2024-03-11"),
		expense(-40, "Food", "2024-02-27"),
	}

	r := BuildReport(budgets, txs, "2024-03")
	if r.Month != "2024-03" {
		t.Fatalf("month = %q", r.Month)
	}
	if len(r.Budgets) != 2 || r.Budgets[0].Budget.ID != 1 || r.Budgets[1].Budget.ID != 4 {
		t.Fatalf("active budgets = %+v", r.Budgets)
	}
	want := Health{TotalBudgeted: 400, TotalSpent: 100, TotalRemaining: 300, PercentageUsed: 25}
	if r.Health != want {
		t.Fatalf("health = %+v, want %+v", r.Health, want)
	}
	if r.Color != Safe {
		t.Fatalf("color = %q", r.Color)
	}
	if r.Budgets[0].Color != Critical {
		t.Fatalf("food budget color = %q", r.Budgets[0].Color)
	}
	if len(r.Triggers) != 1 || r.Triggers[0] != 1 {
		t.Fatalf("alerts = %v", r.Triggers)
	}
}

func TestBuildReportNoBudgets(t *testing.T) {
	r := BuildReport(nil, []core.Transaction{expense(-1, "Food", "2024-03-01")}, "2024-03")
	if r.Health != (Health{}) || len(r.Budgets) != 0 || r.Budgets == nil || r.Triggers == nil {
		t.Fatalf("report = %+v", r)
	}
}
