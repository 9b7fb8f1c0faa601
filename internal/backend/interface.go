// Package backend builds the data store and alert plumbing from
// configuration.
package backend

import (
	"context"

	"github.com/salemadams/cash-dash/internal/services"
	"github.com/salemadams/cash-dash/internal/sheets"
	"github.com/salemadams/cash-dash/internal/store"
)

// CleanupFunc releases a backend's resources.
type CleanupFunc func() error

// BackendResult contains the store and its cleanup function.
type BackendResult struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreatePublisher returns the broker publisher when AMQP is configured
	// and a log-only publisher otherwise.
	CreatePublisher(ctx context.Context, config Config) (services.AlertPublisher, CleanupFunc, error)
	// CreateSink returns the spreadsheet sink when one is configured and an
	// in-memory sink otherwise.
	CreateSink(ctx context.Context, config Config) (sheets.AlertSink, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	SeedFile     string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleAlertsSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
