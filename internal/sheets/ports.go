// Package sheets holds the outbound ports that record budget alerts.
package sheets

import (
	"context"

	"github.com/salemadams/cash-dash/internal/amqp"
)

// Ports for outbound adapters.
type (
	// AlertSink records a consumed budget alert and returns a reference to
	// where it landed.
	AlertSink interface {
		AppendAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) (rowRef string, err error)
	}

	AlertLister interface {
		ListAlerts(ctx context.Context) ([]amqp.BudgetAlertMessage, error)
	}
)
