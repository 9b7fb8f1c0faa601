package google

import (
	"math"
	"time"

	"github.com/salemadams/cash-dash/internal/amqp"
)

// alertRow lays msg out in Header order.
func alertRow(msg *amqp.BudgetAlertMessage) []any {
	return []any{
		msg.Month,
		msg.BudgetID,
		msg.Name,
		round2(msg.Spent),
		round2(msg.Amount),
		round2(msg.Percentage),
		msg.Threshold,
		msg.Timestamp.UTC().Format(time.RFC3339),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
